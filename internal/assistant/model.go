package assistant

const (
	GuidanceMessage = "Please share a bit more detail (example: 'tablet device lost', 'vpn setup', 'laptop policy')."
	ApologyMessage  = "I couldn’t complete the policy lookup for that query. Try a clearer keyword like: 'tablet lost', 'asset loss policy', 'stolen laptop', 'vpn setup', or paste the exact error text."
)

// Channels label where a question came from in metrics and events.
const (
	ChannelHTTP = "http"
	ChannelXMPP = "xmpp"
)

// maxImageBytes bounds the encoded image payload (10 MiB).
const maxImageBytes = 10 << 20

// QueryRequest is the /ask body. ChatHistory holds pre-formatted
// "ROLE: content" lines; only the last five are used.
type QueryRequest struct {
	Question    string   `json:"question" validate:"max=4000"`
	ChatHistory []string `json:"chat_history" validate:"max=50,dive,max=8000"`
	ImageData   string   `json:"image_data,omitempty" validate:"max=10485760"`
}

// Response is never empty.
type Response struct {
	Answer string `json:"answer"`
}
