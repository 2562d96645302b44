package tools

// Params is the validated, typed argument set of one tool kind.
// Implementations live only in this package.
type Params interface {
	Kind() Kind
	sealed()
}

type ResizeParams struct {
	PublicID string
	Width    int
	Height   int
}

type RemoveBackgroundParams struct {
	PublicID string
}

type AutoEnhanceParams struct {
	PublicID string
}

type ChangeFormatParams struct {
	PublicID string
	Format   Format
}

// GenerateFillParams: nil optionals were absent from the call.
type GenerateFillParams struct {
	PublicID string
	Prompt   string
	Width    *int
	Height   *int
	Seed     *int
}

type ReplaceObjectParams struct {
	PublicID         string
	From             string
	To               string
	PreserveGeometry *bool
}

type RemoveObjectParams struct {
	PublicID string
	Prompt   string
}

type RecolorObjectParams struct {
	PublicID string
	Prompt   string
	ToColor  string
}

type SocialCropParams struct {
	PublicID string
	Platform Platform
}

type TagImageParams struct {
	PublicID string
}

type CapabilitiesParams struct{}

func (ResizeParams) Kind() Kind           { return KindResize }
func (RemoveBackgroundParams) Kind() Kind { return KindRemoveBackground }
func (AutoEnhanceParams) Kind() Kind      { return KindAutoEnhance }
func (ChangeFormatParams) Kind() Kind     { return KindChangeFormat }
func (GenerateFillParams) Kind() Kind     { return KindGenerateFill }
func (ReplaceObjectParams) Kind() Kind    { return KindReplaceObject }
func (RemoveObjectParams) Kind() Kind     { return KindRemoveObject }
func (RecolorObjectParams) Kind() Kind    { return KindRecolorObject }
func (SocialCropParams) Kind() Kind       { return KindSocialCrop }
func (TagImageParams) Kind() Kind         { return KindTagImage }
func (CapabilitiesParams) Kind() Kind     { return KindCapabilities }

func (ResizeParams) sealed()           {}
func (RemoveBackgroundParams) sealed() {}
func (AutoEnhanceParams) sealed()      {}
func (ChangeFormatParams) sealed()     {}
func (GenerateFillParams) sealed()     {}
func (ReplaceObjectParams) sealed()    {}
func (RemoveObjectParams) sealed()     {}
func (RecolorObjectParams) sealed()    {}
func (SocialCropParams) sealed()       {}
func (TagImageParams) sealed()         {}
func (CapabilitiesParams) sealed()     {}

// Invocation is a tool call that passed validation. The zero value is not
// valid; obtain one from Registry.Validate.
type Invocation struct {
	params Params
}

// Kind returns the invoked tool kind.
func (inv Invocation) Kind() Kind {
	if inv.params == nil {
		return ""
	}
	return inv.params.Kind()
}

// Params returns the typed arguments. Switch on the concrete type.
func (inv Invocation) Params() Params { return inv.params }

// Valid reports whether inv came from a successful validation.
func (inv Invocation) Valid() bool { return inv.params != nil }

// PublicID returns the target asset, or "" for kinds without one.
func (inv Invocation) PublicID() string {
	switch p := inv.params.(type) {
	case ResizeParams:
		return p.PublicID
	case RemoveBackgroundParams:
		return p.PublicID
	case AutoEnhanceParams:
		return p.PublicID
	case ChangeFormatParams:
		return p.PublicID
	case GenerateFillParams:
		return p.PublicID
	case ReplaceObjectParams:
		return p.PublicID
	case RemoveObjectParams:
		return p.PublicID
	case RecolorObjectParams:
		return p.PublicID
	case SocialCropParams:
		return p.PublicID
	case TagImageParams:
		return p.PublicID
	}
	return ""
}

// buildParams converts normalized arguments into the kind's typed params.
// args holds only fields that passed validation: string, int or bool values.
func buildParams(kind Kind, args map[string]interface{}) Params {
	switch kind {
	case KindResize:
		return ResizeParams{PublicID: str(args, "publicId"), Width: integer(args, "width"), Height: integer(args, "height")}
	case KindRemoveBackground:
		return RemoveBackgroundParams{PublicID: str(args, "publicId")}
	case KindAutoEnhance:
		return AutoEnhanceParams{PublicID: str(args, "publicId")}
	case KindChangeFormat:
		return ChangeFormatParams{PublicID: str(args, "publicId"), Format: Format(str(args, "format"))}
	case KindGenerateFill:
		return GenerateFillParams{
			PublicID: str(args, "publicId"),
			Prompt:   str(args, "prompt"),
			Width:    optInteger(args, "width"),
			Height:   optInteger(args, "height"),
			Seed:     optInteger(args, "seed"),
		}
	case KindReplaceObject:
		return ReplaceObjectParams{
			PublicID:         str(args, "publicId"),
			From:             str(args, "from"),
			To:               str(args, "to"),
			PreserveGeometry: optBool(args, "preserveGeometry"),
		}
	case KindRemoveObject:
		return RemoveObjectParams{PublicID: str(args, "publicId"), Prompt: str(args, "prompt")}
	case KindRecolorObject:
		return RecolorObjectParams{PublicID: str(args, "publicId"), Prompt: str(args, "prompt"), ToColor: str(args, "toColor")}
	case KindSocialCrop:
		return SocialCropParams{PublicID: str(args, "publicId"), Platform: Platform(str(args, "platform"))}
	case KindTagImage:
		return TagImageParams{PublicID: str(args, "publicId")}
	case KindCapabilities:
		return CapabilitiesParams{}
	}
	return nil
}

func str(args map[string]interface{}, name string) string {
	s, _ := args[name].(string)
	return s
}

func integer(args map[string]interface{}, name string) int {
	n, _ := args[name].(int)
	return n
}

func optInteger(args map[string]interface{}, name string) *int {
	n, ok := args[name].(int)
	if !ok {
		return nil
	}
	return &n
}

func optBool(args map[string]interface{}, name string) *bool {
	b, ok := args[name].(bool)
	if !ok {
		return nil
	}
	return &b
}
