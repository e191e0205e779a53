package core

const (
	defaultEventQueue   = 64
	defaultCommandQueue = 8
)

// Client is one structured-channel connection as seen by the core layer.
// Name and Room are only touched from the hub goroutine.
type Client struct {
	ID       string
	Name     string
	Room     string
	Commands chan *Command
	Events   chan *Event

	done chan struct{}
}

// NewClient constructs a client with initialized channels. queue sizes the
// event buffer; a non-positive value uses the default.
func NewClient(id, name string, queue int) *Client {
	if queue <= 0 {
		queue = defaultEventQueue
	}
	return &Client{
		ID:       id,
		Name:     name,
		Commands: make(chan *Command, defaultCommandQueue),
		Events:   make(chan *Event, queue),
		done:     make(chan struct{}),
	}
}

// Done is closed once the hub has unregistered the client.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

func (c *Client) displayName() string {
	if c.Name == "" {
		return "User"
	}
	return c.Name
}
