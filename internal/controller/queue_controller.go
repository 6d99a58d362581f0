package controller

import (
	"net/http"

	redisq "github.com/datavend/backend/internal/infrastructure/redis"
)

const sampleSize = 10

// QueueController exposes the management view of the durable queues: depth
// by state plus samples of in-flight and dead-lettered entries. This is where
// a stuck payment shows up first.
type QueueController struct {
	queues []*redisq.Queue
}

// NewQueueController creates a new QueueController.
func NewQueueController(queues ...*redisq.Queue) *QueueController {
	return &QueueController{queues: queues}
}

// Stats handles GET /api/v1/admin/queues
func (h *QueueController) Stats(w http.ResponseWriter, r *http.Request) {
	views := make([]QueueView, 0, len(h.queues))

	for _, q := range h.queues {
		stats, err := q.Stats(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}

		failed, err := q.FailedMessages(r.Context(), sampleSize)
		if err != nil {
			writeError(w, err)
			return
		}

		pending, err := q.PendingMessages(r.Context(), sampleSize)
		if err != nil {
			writeError(w, err)
			return
		}

		view := QueueView{
			Stats:   stats,
			Failed:  failed,
			Pending: make([]PendingMessageView, 0, len(pending)),
		}
		for _, p := range pending {
			view.Pending = append(view.Pending, FromPending(p))
		}
		views = append(views, view)
	}

	writeJSON(w, http.StatusOK, views)
}
