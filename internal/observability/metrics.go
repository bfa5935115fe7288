package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	MessagesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "studychat_messages_total",
		Help: "Messages appended to session logs, by sender.",
	}, []string{"sender"})

	RepliesScheduled = promauto.NewCounter(prometheus.CounterOpts{
		Name: "studychat_replies_scheduled_total",
		Help: "Synthetic reply timers started.",
	})

	RepliesDelivered = promauto.NewCounter(prometheus.CounterOpts{
		Name: "studychat_replies_delivered_total",
		Help: "Synthetic replies appended to a session log.",
	})

	RepliesCancelled = promauto.NewCounter(prometheus.CounterOpts{
		Name: "studychat_replies_cancelled_total",
		Help: "Pending replies dropped by a partner switch or session close.",
	})

	ReplyDelay = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "studychat_reply_delay_seconds",
		Help:    "Delay chosen for synthetic replies.",
		Buckets: []float64{0.5, 1, 1.5, 2, 2.5, 3, 5},
	})

	PartnerSwitches = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "studychat_partner_switches_total",
		Help: "Partner switches, by target partner.",
	}, []string{"partner"})

	SessionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "studychat_sessions_active",
		Help: "Live conversation sessions.",
	})

	UploadFiles = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "studychat_upload_files_total",
		Help: "Files offered to the file picker, by result.",
	}, []string{"result"})
)
