package pipeline

// Kind tags a rendered reply so transports can style it.
type Kind int

const (
	KindNormal Kind = iota
	KindSuccess
	KindError
	KindHelp
)

func (k Kind) String() string {
	switch k {
	case KindSuccess:
		return "success"
	case KindError:
		return "error"
	case KindHelp:
		return "help"
	default:
		return "normal"
	}
}

// Message is the single reply produced by one invocation.
type Message struct {
	Kind  Kind
	Title string
	Body  string
}

// Normal builds a plain informational reply.
func Normal(body string) Message { return Message{Kind: KindNormal, Body: body} }

// Success builds a reply confirming a change.
func Success(body string) Message { return Message{Kind: KindSuccess, Body: body} }

// Error builds a user-facing error reply titled "Error".
func Error(body string) Message { return Message{Kind: KindError, Title: "Error", Body: body} }

// Help builds a usage reply titled "Help".
func Help(body string) Message { return Message{Kind: KindHelp, Title: "Help", Body: body} }

// WithTitle returns a copy of m with its title replaced.
func (m Message) WithTitle(title string) Message {
	m.Title = title
	return m
}
