// Package session holds the per-session conversation state and its
// persistence.
package session

import "context"

// Role is the author of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
	RoleFunction  Role = "function"
)

// Names of the read-only functions offered to the model in every mode.
const (
	FuncReadFile  = "readFile"
	FuncListFiles = "listFiles"
)

// FunctionCall is a structured call chosen by the model.
// Arguments is a JSON-encoded object.
type FunctionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// Message is one entry of the conversation log.
// Content is nil for pure function-call messages.
type Message struct {
	Role         Role          `json:"role"`
	Content      *string       `json:"content"`
	Name         string        `json:"name,omitempty"`
	FunctionCall *FunctionCall `json:"function_call,omitempty"`
}

// Text returns the content, or "" when it is null.
func (m Message) Text() string {
	if m.Content == nil {
		return ""
	}
	return *m.Content
}

// Str returns a pointer to s for use as message content.
func Str(s string) *string {
	return &s
}

// UserMessage builds a user message.
func UserMessage(content string) Message {
	return Message{Role: RoleUser, Content: Str(content)}
}

// SystemMessage builds a system message.
func SystemMessage(content string) Message {
	return Message{Role: RoleSystem, Content: Str(content)}
}

// AssistantMessage builds a plain assistant reply.
func AssistantMessage(content string) Message {
	return Message{Role: RoleAssistant, Content: Str(content)}
}

// FunctionResult builds the function-role reply to a call named name.
func FunctionResult(name, content string) Message {
	return Message{Role: RoleFunction, Name: name, Content: Str(content)}
}

// FunctionCallMessage builds an assistant message requesting a function call.
func FunctionCallMessage(name, arguments string) Message {
	return Message{
		Role:         RoleAssistant,
		FunctionCall: &FunctionCall{Name: name, Arguments: arguments},
	}
}

// FileEntry is the session's cached view of one project file.
type FileEntry struct {
	Path       string    `json:"path"`
	Contents   *string   `json:"contents,omitempty"`
	Embeddings []float64 `json:"embeddings,omitempty"`
	Shortened  string    `json:"shortened,omitempty"`
	Length     int       `json:"length,omitempty"`
}

// Size returns the known character length of the file.
func (f *FileEntry) Size() int {
	if f.Length > 0 {
		return f.Length
	}
	if f.Contents != nil {
		return len([]rune(*f.Contents))
	}
	return 0
}

// Context is the aggregate state of one interactive session. It is created
// at session start and passed explicitly to every call that needs it.
type Context struct {
	Project               string                `json:"project"`
	CurrentTask           string                `json:"currentTask,omitempty"`
	CurrentFile           string                `json:"currentFile,omitempty"`
	WorkingFolder         string                `json:"workingFolder"`
	Files                 map[string]*FileEntry `json:"files"`
	Messages              []Message             `json:"messages"`
	CurrentTaskEmbeddings []float64             `json:"currentTaskEmbeddings,omitempty"`
}

// New creates an empty session rooted at workingFolder.
func New(workingFolder string) *Context {
	return &Context{
		WorkingFolder: workingFolder,
		Files:         make(map[string]*FileEntry),
		Messages:      []Message{},
	}
}

// Append adds messages to the end of the log.
func (c *Context) Append(msgs ...Message) {
	c.Messages = append(c.Messages, msgs...)
}

// Last returns the most recent message.
func (c *Context) Last() (Message, bool) {
	if len(c.Messages) == 0 {
		return Message{}, false
	}
	return c.Messages[len(c.Messages)-1], true
}

// Forget drops a file from the session cache.
func (c *Context) Forget(path string) {
	delete(c.Files, path)
	if c.CurrentFile == path {
		c.CurrentFile = ""
	}
}

// Embedder turns text into an embedding vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float64, error)
}
