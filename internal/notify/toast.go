package notify

import "log/slog"

type Toast struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Variant     string `json:"variant,omitempty"`
}

type Toaster interface {
	Toast(Toast)
}

// LogToaster writes toasts to the structured log.
type LogToaster struct{}

func (LogToaster) Toast(t Toast) {
	slog.Info("toast", "title", t.Title, "description", t.Description)
}

// Toasters fans a toast out to several sinks.
type Toasters []Toaster

func (ts Toasters) Toast(t Toast) {
	for _, to := range ts {
		to.Toast(t)
	}
}
