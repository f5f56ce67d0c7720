package teams

// team identifies a Teams team.
type team struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
}

// channel identifies one channel of a team.
type channel struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
}

// message is a channel message thread. Replies are populated when the
// listing expands them.
type message struct {
	ID                   string       `json:"id"`
	Subject              string       `json:"subject"`
	MessageType          string       `json:"messageType"`
	WebURL               string       `json:"webUrl"`
	CreatedDateTime      string       `json:"createdDateTime"`
	LastModifiedDateTime string       `json:"lastModifiedDateTime"`
	Body                 *itemBody    `json:"body"`
	From                 *identitySet `json:"from"`
	Replies              []message    `json:"replies"`
}

// itemBody carries a message body and its declared content type
// ("html" or "text").
type itemBody struct {
	ContentType string `json:"contentType"`
	Content     string `json:"content"`
}

// identitySet is the actor attribution Graph attaches to messages.
type identitySet struct {
	User        *identity `json:"user"`
	Application *identity `json:"application"`
}

// identity is a single named actor.
type identity struct {
	DisplayName string `json:"displayName"`
}

// displayNameOf resolves an identity set to a display name, preferring
// the user over the acting application (bots post as applications).
func displayNameOf(set *identitySet, fallback string) string {
	if set != nil {
		if set.User != nil && set.User.DisplayName != "" {
			return set.User.DisplayName
		}
		if set.Application != nil && set.Application.DisplayName != "" {
			return set.Application.DisplayName
		}
	}
	return fallback
}
