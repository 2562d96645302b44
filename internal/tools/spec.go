package tools

// DiscriminantField is the argument every tool call must carry, set to the tool's kind.
const DiscriminantField = "type"

// FieldType is the JSON type of a tool parameter.
type FieldType int

const (
	TypeString FieldType = iota
	TypeInteger
	TypeBoolean
	TypeEnum
)

func (t FieldType) jsonType() string {
	switch t {
	case TypeInteger:
		return "integer"
	case TypeBoolean:
		return "boolean"
	default:
		return "string"
	}
}

// Bound constrains integer fields.
type Bound int

const (
	Unbounded Bound = iota
	Positive        // > 0
	NonNegative     // >= 0
)

// Field is one parameter of a tool.
type Field struct {
	Name        string
	Type        FieldType
	Description string
	Required    bool
	Enum        []string // TypeEnum only
	Bound       Bound    // TypeInteger only
}

// Spec describes a tool: its kind, a one-line summary for the capabilities
// listing, a description for the model, and its ordered parameters.
type Spec struct {
	Kind        Kind
	Summary     string
	Description string
	Fields      []Field
}

// field returns the named field.
func (s Spec) field(name string) (Field, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// Schema renders the parameters as a JSON Schema object. The discriminant is
// appended as a required single-value enum.
func (s Spec) Schema() map[string]interface{} {
	props := make(map[string]interface{}, len(s.Fields)+1)
	required := make([]string, 0, len(s.Fields)+1)
	for _, f := range s.Fields {
		p := map[string]interface{}{
			"type":        f.Type.jsonType(),
			"description": f.Description,
		}
		if f.Type == TypeEnum {
			p["enum"] = append([]string(nil), f.Enum...)
		}
		switch f.Bound {
		case Positive:
			p["minimum"] = 1
		case NonNegative:
			p["minimum"] = 0
		}
		props[f.Name] = p
		if f.Required {
			required = append(required, f.Name)
		}
	}
	props[DiscriminantField] = map[string]interface{}{
		"type":        "string",
		"enum":        []string{string(s.Kind)},
		"description": "Must be \"" + string(s.Kind) + "\".",
	}
	required = append(required, DiscriminantField)
	return map[string]interface{}{
		"type":                 "object",
		"properties":           props,
		"required":             required,
		"additionalProperties": false,
	}
}

var publicIDField = Field{
	Name:        "publicId",
	Type:        TypeString,
	Description: "Public ID of the uploaded image, e.g. sample or folder/img_123",
	Required:    true,
}

// BuiltinSpecs returns the specification of every tool kind, in the order
// they are offered to the model.
func BuiltinSpecs() []Spec {
	return []Spec{
		{
			Kind:        KindResize,
			Summary:     "resize",
			Description: "Resize an image to exact dimensions with a content-aware fill crop (c_fill,g_auto).",
			Fields: []Field{
				publicIDField,
				{Name: "width", Type: TypeInteger, Description: "Target width in pixels", Required: true, Bound: Positive},
				{Name: "height", Type: TypeInteger, Description: "Target height in pixels", Required: true, Bound: Positive},
			},
		},
		{
			Kind:        KindRemoveBackground,
			Summary:     "removeBG",
			Description: "Remove the background of an image.",
			Fields:      []Field{publicIDField},
		},
		{
			Kind:        KindAutoEnhance,
			Summary:     "autoEnhance",
			Description: "Automatically improve colors, contrast and lighting.",
			Fields:      []Field{publicIDField},
		},
		{
			Kind:        KindChangeFormat,
			Summary:     "format",
			Description: "Convert an image to another delivery format.",
			Fields: []Field{
				publicIDField,
				{Name: "format", Type: TypeEnum, Description: "Output format", Required: true, Enum: Formats},
			},
		},
		{
			Kind:        KindGenerateFill,
			Summary:     "genFill",
			Description: "Extend an image to new dimensions, generating the missing area from a prompt.",
			Fields: []Field{
				publicIDField,
				{Name: "prompt", Type: TypeString, Description: "What the generated area should contain", Required: true},
				{Name: "width", Type: TypeInteger, Description: "Optional target width in pixels", Bound: Positive},
				{Name: "height", Type: TypeInteger, Description: "Optional target height in pixels", Bound: Positive},
				{Name: "seed", Type: TypeInteger, Description: "Optional seed to vary the generated result", Bound: NonNegative},
			},
		},
		{
			Kind:        KindReplaceObject,
			Summary:     "replace",
			Description: "Replace an object described in natural language with another one.",
			Fields: []Field{
				publicIDField,
				{Name: "from", Type: TypeString, Description: "The object to replace, e.g. \"the cup\"", Required: true},
				{Name: "to", Type: TypeString, Description: "What to put in its place", Required: true},
				{Name: "preserveGeometry", Type: TypeBoolean, Description: "Keep the shape of the original object"},
			},
		},
		{
			Kind:        KindRemoveObject,
			Summary:     "remove",
			Description: "Remove an object described in natural language.",
			Fields: []Field{
				publicIDField,
				{Name: "prompt", Type: TypeString, Description: "The object to remove, e.g. \"the red car\"", Required: true},
			},
		},
		{
			Kind:        KindRecolorObject,
			Summary:     "recolor",
			Description: "Recolor an object described in natural language.",
			Fields: []Field{
				publicIDField,
				{Name: "prompt", Type: TypeString, Description: "The object to recolor", Required: true},
				{Name: "toColor", Type: TypeString, Description: "Target color name or hex value, e.g. red or FF0000", Required: true},
			},
		},
		{
			Kind:        KindSocialCrop,
			Summary:     "social",
			Description: "Crop an image to the recommended post size of a social platform.",
			Fields: []Field{
				publicIDField,
				{Name: "platform", Type: TypeEnum, Description: "Target platform", Required: true, Enum: Platforms},
			},
		},
		{
			Kind:        KindTagImage,
			Summary:     "tag",
			Description: "Auto-tag an image with detected objects and concepts.",
			Fields:      []Field{publicIDField},
		},
		{
			Kind:        KindCapabilities,
			Summary:     "capabilities",
			Description: "List the supported image features.",
		},
	}
}
