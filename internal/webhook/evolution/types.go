package evolution

// WebhookPayload is the Evolution API message-upsert event envelope.
type WebhookPayload struct {
	Event    string      `json:"event"`
	Instance string      `json:"instance"`
	Data     PayloadData `json:"data"`
}

// PayloadData is the message body of the event.
type PayloadData struct {
	Key              MessageKey `json:"key"`
	Message          Message    `json:"message"`
	MessageTimestamp int64      `json:"messageTimestamp"`
	PushName         string     `json:"pushName"`
}

// MessageKey identifies the sender and direction.
type MessageKey struct {
	RemoteJid string `json:"remoteJid"`
	FromMe    bool   `json:"fromMe"`
	ID        string `json:"id"`
}

// Message holds exactly one of the supported shapes.
type Message struct {
	Conversation string        `json:"conversation,omitempty"`
	AudioMessage *AudioMessage `json:"audioMessage,omitempty"`
	ImageMessage *ImageMessage `json:"imageMessage,omitempty"`
}

// AudioMessage is a voice note.
type AudioMessage struct {
	URL      string `json:"url"`
	Mimetype string `json:"mimetype,omitempty"`
}

// ImageMessage is a photo, optionally captioned.
type ImageMessage struct {
	URL     string `json:"url"`
	Caption string `json:"caption,omitempty"`
}
