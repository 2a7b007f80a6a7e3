package tracking

// Event is an OS lifecycle notification consumed by the tracker. How events
// are captured from the platform is outside this package; anything able to
// construct these values can act as a source.
type Event interface {
	isEvent()
}

// FocusEvent reports that an application window gained focus.
type FocusEvent struct {
	AppID        string `json:"app_id"`
	AppName      string `json:"app_name,omitempty"`
	WindowTitle  string `json:"window_title,omitempty"`
	URL          string `json:"url,omitempty"`
	DocumentPath string `json:"document_path,omitempty"`
	Icon         string `json:"icon,omitempty"`
}

// SuspendEvent reports that the system is about to sleep.
type SuspendEvent struct{}

// ResumeEvent reports that the system woke from sleep.
type ResumeEvent struct{}

func (FocusEvent) isEvent()   {}
func (SuspendEvent) isEvent() {}
func (ResumeEvent) isEvent()  {}

// Source delivers lifecycle events to subscribed handlers.
type Source interface {
	// Subscribe registers a handler and returns a function that removes it.
	Subscribe(handler func(Event)) (unsubscribe func())
}
