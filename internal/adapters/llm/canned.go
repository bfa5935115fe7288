package llm

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/PabloGalante/studychat/internal/domain"
	"github.com/PabloGalante/studychat/internal/entropy"
)

// Policy decides which canned response is returned.
type Policy string

const (
	PolicyUniform Policy = "uniform"
	PolicyRotate  Policy = "rotate"
	PolicyEcho    Policy = "echo"
	PolicyFirst   Policy = "first"
)

// ParsePolicy maps a config value to a Policy. Empty means uniform.
func ParsePolicy(s string) (Policy, error) {
	switch p := Policy(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return PolicyUniform, nil
	case PolicyUniform, PolicyRotate, PolicyEcho, PolicyFirst:
		return p, nil
	default:
		return "", fmt.Errorf("unknown reply policy %q", s)
	}
}

// CannedResponder implements domain.ReplyGenerator without any model behind it.
type CannedResponder struct {
	policy    Policy
	responses []string
	rand      entropy.Source

	mu   sync.Mutex
	next int
}

// NewCannedResponder builds a responder. An empty response list falls back
// to DefaultResponses; a nil source uses entropy.System().
func NewCannedResponder(policy Policy, responses []string, src entropy.Source) *CannedResponder {
	if len(responses) == 0 {
		responses = DefaultResponses
	}
	if src == nil {
		src = entropy.System()
	}
	if policy == "" {
		policy = PolicyUniform
	}
	return &CannedResponder{
		policy:    policy,
		responses: append([]string(nil), responses...),
		rand:      src,
	}
}

func (c *CannedResponder) Policy() Policy {
	return c.policy
}

// GenerateReply implements domain.ReplyGenerator.
func (c *CannedResponder) GenerateReply(
	ctx context.Context,
	userMessage string,
	convCtx domain.ConversationContext,
) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	switch c.policy {
	case PolicyEcho:
		return echoReply(userMessage), nil
	case PolicyFirst:
		return c.responses[0], nil
	case PolicyRotate:
		c.mu.Lock()
		defer c.mu.Unlock()
		r := c.responses[c.next]
		c.next = (c.next + 1) % len(c.responses)
		return r, nil
	default:
		return c.responses[c.rand.IntN(len(c.responses))], nil
	}
}
