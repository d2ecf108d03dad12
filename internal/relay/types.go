package relay

// ChatCreatedEvent is posted when a user starts the bot for a pending
// authorization request.
type ChatCreatedEvent struct {
	BotID         string `json:"botId"`
	ChatID        string `json:"chatId"`
	RequestID     string `json:"requestId"`
	ExpressUserID string `json:"expressUserId"`
	Username      string `json:"username,omitempty"`
	Device        string `json:"device,omitempty"`
	LanguageCode  string `json:"languageCode,omitempty"`
}

// AuthCallbackEvent is posted when the user presses allow or deny.
type AuthCallbackEvent struct {
	CallbackData  string `json:"callbackData"`
	AuthRequestID string `json:"authRequestId"`
	Decision      string `json:"decision"`
	ChatID        string `json:"chatId"`
	ExpressUserID string `json:"expressUserId,omitempty"`
}

// MessageEvent is posted for free text typed into the bot chat.
type MessageEvent struct {
	BotID         string `json:"botId"`
	ChatID        string `json:"chatId"`
	SyncID        string `json:"syncId"`
	ExpressUserID string `json:"expressUserId"`
	Username      string `json:"username,omitempty"`
	FirstName     string `json:"firstName,omitempty"`
	LastName      string `json:"lastName,omitempty"`
	Text          string `json:"text"`
}
