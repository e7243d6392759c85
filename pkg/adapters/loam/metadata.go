package loam

// NodeMetadata is the frontmatter (or JSON/YAML body) of one node document.
// It uses "mapstructure" tags to match the keys written by authors.
type NodeMetadata struct {
	// Name overrides the node name, which otherwise comes from the file path.
	Name   string         `json:"name" mapstructure:"name"`
	Type   string         `json:"type" mapstructure:"type"`
	Params map[string]any `json:"params" mapstructure:"params"`
	Inputs map[string]any `json:"inputs" mapstructure:"inputs"`

	// Dialog sugar: each entry links a transition output to the "prev" input of a node.
	Next    string       `json:"next" mapstructure:"next"`
	Then    string       `json:"then" mapstructure:"then"`
	Else    string       `json:"else" mapstructure:"else"`
	Options []OptionLink `json:"options" mapstructure:"options"`

	// Connect links data outputs of this node to "node.port" inputs.
	Connect []PortLink `json:"connect" mapstructure:"connect"`
}

// OptionLink is one answer of a dialog.choice node.
type OptionLink struct {
	Text string `json:"text" mapstructure:"text"`
	To   string `json:"to" mapstructure:"to"`
}

// PortLink connects output port From to the "node.port" endpoint To.
type PortLink struct {
	From string `json:"from" mapstructure:"from"`
	To   string `json:"to" mapstructure:"to"`
}
