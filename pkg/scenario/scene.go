package scenario

// SceneType tags the variant of a scene. The transition engine dispatches
// on it exhaustively; an unknown tag is a configuration error.
type SceneType string

const (
	// SceneLinear advances to a single next scene on "continue".
	SceneLinear SceneType = "linear"
	// SceneChoice presents ordered choices; the selected choice decides the target.
	SceneChoice SceneType = "choice"
	// SceneConditional routes on the first true branch expression, frozen at first entry.
	SceneConditional SceneType = "conditional"
	// SceneTerminal is an absorbing narrative ending with an outcome tag.
	SceneTerminal SceneType = "terminal"
)

// Scene is a single node in the scenario graph. Title, narration, description
// and image are presentation payload the engine treats as opaque. The
// type-specific fields below them form the transition payload.
type Scene struct {
	Title       string    `json:"title"`
	Narration   string    `json:"narration"`
	Description string    `json:"description,omitempty"`
	Image       string    `json:"image,omitempty"`
	Type        SceneType `json:"type"`

	// Linear payload
	Next string `json:"next,omitempty"`

	// Choice payload; declaration order is significant (index 0 = "A").
	Choices []Choice `json:"choices,omitempty"`

	// Conditional payload; branches are evaluated strictly in order.
	Branches []Branch `json:"branches,omitempty"`
	Default  string   `json:"default,omitempty"`

	// Terminal payload
	Outcome        string `json:"outcome,omitempty"`
	OutcomeMessage string `json:"outcome_message,omitempty"`
}

// Choice is one option of a choice scene. Effects are signed deltas applied
// additively to the session's variables when the choice is taken.
type Choice struct {
	Text    string         `json:"text"`
	Next    string         `json:"next"`
	Effects map[string]int `json:"effects,omitempty"`
}

// Branch pairs a boolean expression with a target scene. The first branch
// whose expression evaluates true wins; later branches are not evaluated.
type Branch struct {
	If   string `json:"if"`
	Next string `json:"next"`
}
