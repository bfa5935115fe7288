package conversation

import (
	"fmt"

	"github.com/PabloGalante/studychat/internal/domain"
)

const DefaultPartnerID domain.PartnerID = "bot"

// Catalog is the static list of partners a session can talk to.
type Catalog struct {
	partners []domain.Partner
	byID     map[domain.PartnerID]domain.Partner
	def      domain.PartnerID
}

// NewCatalog validates the partner list. def must name one of the partners.
func NewCatalog(def domain.PartnerID, partners ...domain.Partner) (*Catalog, error) {
	if len(partners) == 0 {
		return nil, fmt.Errorf("catalog needs at least one partner")
	}

	byID := make(map[domain.PartnerID]domain.Partner, len(partners))
	for _, p := range partners {
		if p.ID == "" {
			return nil, fmt.Errorf("partner %q has an empty id", p.DisplayName)
		}
		if _, dup := byID[p.ID]; dup {
			return nil, fmt.Errorf("duplicate partner id %q", p.ID)
		}
		byID[p.ID] = p
	}
	if _, ok := byID[def]; !ok {
		return nil, fmt.Errorf("default partner %q is not in the catalog", def)
	}

	return &Catalog{
		partners: append([]domain.Partner(nil), partners...),
		byID:     byID,
		def:      def,
	}, nil
}

// DefaultCatalog returns the built-in course assistants and mentors.
func DefaultCatalog() *Catalog {
	c, err := NewCatalog(DefaultPartnerID,
		domain.Partner{
			ID:          DefaultPartnerID,
			DisplayName: "AI Assistant",
			Avatar:      "🤖",
			IsAutomated: true,
			Greeting:    "Hello! I'm your AI assistant. How can I help you today?",
		},
		domain.Partner{ID: "nodejs", DisplayName: "Node.js Course", Avatar: "📚", IsAutomated: true},
		domain.Partner{ID: "python", DisplayName: "Python Course", Avatar: "🐍", IsAutomated: true},
		domain.Partner{ID: "hitish", DisplayName: "Hitish", Avatar: "👨", IsAutomated: false},
		domain.Partner{ID: "piyush", DisplayName: "Piyush", Avatar: "👨‍💻", IsAutomated: false},
	)
	if err != nil {
		panic(err)
	}
	return c
}

func (c *Catalog) Lookup(id domain.PartnerID) (domain.Partner, bool) {
	p, ok := c.byID[id]
	return p, ok
}

func (c *Catalog) Default() domain.Partner {
	return c.byID[c.def]
}

// Partners returns the catalog in declaration order.
func (c *Catalog) Partners() []domain.Partner {
	return append([]domain.Partner(nil), c.partners...)
}

// Greeting is the first message of a fresh log for p.
func Greeting(p domain.Partner) string {
	switch {
	case p.Greeting != "":
		return p.Greeting
	case p.IsAutomated:
		return fmt.Sprintf("Hello! I'm your %s assistant. Ask me anything about the course content!", p.DisplayName)
	default:
		return fmt.Sprintf("Hey! You're now chatting with %s. Start the conversation!", p.DisplayName)
	}
}
