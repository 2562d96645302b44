package transform

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/cloudiagent/cloudiagent/internal/tools"
)

// ErrNotTransform is returned by Encode for kinds that do not produce a
// descriptor (tagImage, capabilities) and for the zero Invocation.
var ErrNotTransform = errors.New("transform: invocation is not a transform")

// SocialPreset is the crop size used for a social platform.
type SocialPreset struct {
	Width  int
	Height int
}

// SocialPresets maps every platform to its recommended post size.
var SocialPresets = map[tools.Platform]SocialPreset{
	tools.PlatformInstagram: {Width: 1080, Height: 1080},
	tools.PlatformFacebook:  {Width: 1200, Height: 630},
	tools.PlatformX:         {Width: 1600, Height: 900},
	tools.PlatformLinkedIn:  {Width: 1200, Height: 627},
	tools.PlatformBluesky:   {Width: 1000, Height: 1000},
}

// builder emits at most one token for an invocation's params.
type builder[P tools.Params] func(P) (Token, bool)

func fixed[P tools.Params](op, value string) builder[P] {
	return func(P) (Token, bool) { return Token{Operator: op, Value: value}, true }
}

func dim[P tools.Params](op string, get func(P) int) builder[P] {
	return func(p P) (Token, bool) { return Token{Operator: op, Value: strconv.Itoa(get(p))}, true }
}

func optDim[P tools.Params](op string, get func(P) *int) builder[P] {
	return func(p P) (Token, bool) {
		v := get(p)
		if v == nil {
			return Token{}, false
		}
		return Token{Operator: op, Value: strconv.Itoa(*v)}, true
	}
}

func run[P tools.Params](p P, steps []builder[P]) []Token {
	out := make([]Token, 0, len(steps))
	for _, step := range steps {
		if t, ok := step(p); ok {
			out = append(out, t)
		}
	}
	return out
}

var resizeSteps = []builder[tools.ResizeParams]{
	fixed[tools.ResizeParams]("c", "fill"),
	fixed[tools.ResizeParams]("g", "auto"),
	dim("w", func(p tools.ResizeParams) int { return p.Width }),
	dim("h", func(p tools.ResizeParams) int { return p.Height }),
}

var removeBackgroundSteps = []builder[tools.RemoveBackgroundParams]{
	fixed[tools.RemoveBackgroundParams]("e", "background_removal"),
}

var autoEnhanceSteps = []builder[tools.AutoEnhanceParams]{
	fixed[tools.AutoEnhanceParams]("e", "improve"),
}

var changeFormatSteps = []builder[tools.ChangeFormatParams]{
	func(p tools.ChangeFormatParams) (Token, bool) {
		return Token{Operator: "f", Value: string(p.Format)}, true
	},
}

var generateFillSteps = []builder[tools.GenerateFillParams]{
	func(p tools.GenerateFillParams) (Token, bool) {
		args := []Arg{{Name: "prompt", Value: p.Prompt}}
		if p.Seed != nil {
			args = append(args, Arg{Name: "seed", Value: strconv.Itoa(*p.Seed)})
		}
		return Token{Operator: "e", Value: "gen_fill", Args: args}, true
	},
	func(p tools.GenerateFillParams) (Token, bool) {
		return Token{Operator: "c", Value: "pad"}, p.Width != nil || p.Height != nil
	},
	optDim("w", func(p tools.GenerateFillParams) *int { return p.Width }),
	optDim("h", func(p tools.GenerateFillParams) *int { return p.Height }),
}

var replaceObjectSteps = []builder[tools.ReplaceObjectParams]{
	func(p tools.ReplaceObjectParams) (Token, bool) {
		args := []Arg{{Name: "from", Value: p.From}, {Name: "to", Value: p.To}}
		if p.PreserveGeometry != nil && *p.PreserveGeometry {
			args = append(args, Arg{Name: "preserve-geometry", Value: "true"})
		}
		return Token{Operator: "e", Value: "gen_replace", Args: args}, true
	},
}

var removeObjectSteps = []builder[tools.RemoveObjectParams]{
	func(p tools.RemoveObjectParams) (Token, bool) {
		return Token{Operator: "e", Value: "gen_remove", Args: []Arg{{Name: "prompt", Value: p.Prompt}}}, true
	},
}

var recolorObjectSteps = []builder[tools.RecolorObjectParams]{
	func(p tools.RecolorObjectParams) (Token, bool) {
		return Token{Operator: "e", Value: "gen_recolor", Args: []Arg{
			{Name: "prompt", Value: p.Prompt},
			{Name: "to-color", Value: p.ToColor},
		}}, true
	},
}

var socialCropSteps = []builder[tools.SocialCropParams]{
	fixed[tools.SocialCropParams]("c", "fill"),
	fixed[tools.SocialCropParams]("g", "auto"),
	dim("w", func(p tools.SocialCropParams) int { return SocialPresets[p.Platform].Width }),
	dim("h", func(p tools.SocialCropParams) int { return SocialPresets[p.Platform].Height }),
}

// Encode maps a validated invocation to its descriptor. The result depends
// only on the invocation. Every transform kind encodes without error.
func Encode(inv tools.Invocation) (Descriptor, error) {
	var tokens []Token
	switch p := inv.Params().(type) {
	case tools.ResizeParams:
		tokens = run(p, resizeSteps)
	case tools.RemoveBackgroundParams:
		tokens = run(p, removeBackgroundSteps)
	case tools.AutoEnhanceParams:
		tokens = run(p, autoEnhanceSteps)
	case tools.ChangeFormatParams:
		tokens = run(p, changeFormatSteps)
	case tools.GenerateFillParams:
		tokens = run(p, generateFillSteps)
	case tools.ReplaceObjectParams:
		tokens = run(p, replaceObjectSteps)
	case tools.RemoveObjectParams:
		tokens = run(p, removeObjectSteps)
	case tools.RecolorObjectParams:
		tokens = run(p, recolorObjectSteps)
	case tools.SocialCropParams:
		if _, ok := SocialPresets[p.Platform]; !ok {
			panic(fmt.Sprintf("transform: no preset for validated platform %q", p.Platform))
		}
		tokens = run(p, socialCropSteps)
	case tools.TagImageParams, tools.CapabilitiesParams, nil:
		return Descriptor{}, fmt.Errorf("%w: %q", ErrNotTransform, inv.Kind())
	default:
		panic(fmt.Sprintf("transform: no encoder for %T", p))
	}
	return Descriptor{assetID: inv.PublicID(), tokens: tokens}, nil
}
