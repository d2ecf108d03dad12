package botx

// Button is one inline button attached to a message. Pressing it sends
// Command back to the bot as a user command.
type Button struct {
	Command string
	Label   string
	// Silent buttons do not echo the command into the chat.
	Silent bool
}

// notificationRequest is the body of POST /api/v4/botx/notifications/direct.
type notificationRequest struct {
	GroupChatID  string       `json:"group_chat_id"`
	Notification notification `json:"notification"`
}

type notification struct {
	Status string           `json:"status"`
	Body   string           `json:"body"`
	Bubble [][]bubbleButton `json:"bubble,omitempty"`
}

type bubbleButton struct {
	Command string     `json:"command"`
	Label   string     `json:"label"`
	Data    struct{}   `json:"data"`
	Opts    buttonOpts `json:"opts"`
}

type buttonOpts struct {
	Silent bool `json:"silent"`
}

func toBubble(rows [][]Button) [][]bubbleButton {
	if len(rows) == 0 {
		return nil
	}
	out := make([][]bubbleButton, 0, len(rows))
	for _, row := range rows {
		if len(row) == 0 {
			continue
		}
		r := make([]bubbleButton, len(row))
		for i, b := range row {
			r[i] = bubbleButton{
				Command: b.Command,
				Label:   b.Label,
				Opts:    buttonOpts{Silent: b.Silent},
			}
		}
		out = append(out, r)
	}
	return out
}
