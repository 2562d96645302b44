package tools

// Kind names a tool the completion service may invoke. The set is closed:
// adding a kind means adding a Spec here, a case in buildParams, and a case
// in the transform encoder.
type Kind string

const (
	KindResize           Kind = "resize"
	KindRemoveBackground Kind = "removeBackground"
	KindAutoEnhance      Kind = "autoEnhance"
	KindChangeFormat     Kind = "changeFormat"
	KindGenerateFill     Kind = "generateFill"
	KindReplaceObject    Kind = "replaceObject"
	KindRemoveObject     Kind = "removeObject"
	KindRecolorObject    Kind = "recolorObject"
	KindSocialCrop       Kind = "socialCrop"
	KindTagImage         Kind = "tagImage"
	KindCapabilities     Kind = "capabilities"
)

// Class groups kinds by how the dispatcher executes them.
type Class int

const (
	// ClassTransform kinds are encoded into a transform descriptor; no side effects.
	ClassTransform Class = iota
	// ClassTag kinds call the tagging collaborator.
	ClassTag
	// ClassInfo kinds answer from the registry itself.
	ClassInfo
)

// Class returns how invocations of k are executed.
func (k Kind) Class() Class {
	switch k {
	case KindTagImage:
		return ClassTag
	case KindCapabilities:
		return ClassInfo
	default:
		return ClassTransform
	}
}

// Known reports whether k is one of the kinds this package can build params for.
func (k Kind) Known() bool {
	switch k {
	case KindResize, KindRemoveBackground, KindAutoEnhance, KindChangeFormat,
		KindGenerateFill, KindReplaceObject, KindRemoveObject, KindRecolorObject,
		KindSocialCrop, KindTagImage, KindCapabilities:
		return true
	}
	return false
}

// Format is an output image format accepted by changeFormat.
type Format string

const (
	FormatWebP Format = "webp"
	FormatAVIF Format = "avif"
	FormatJPG  Format = "jpg"
	FormatPNG  Format = "png"
)

// Formats lists the accepted output formats in schema order.
var Formats = []string{string(FormatWebP), string(FormatAVIF), string(FormatJPG), string(FormatPNG)}

// Platform is a social network with a fixed crop preset.
type Platform string

const (
	PlatformInstagram Platform = "instagram"
	PlatformFacebook  Platform = "facebook"
	PlatformX         Platform = "x"
	PlatformLinkedIn  Platform = "linkedin"
	PlatformBluesky   Platform = "bluesky"
)

// Platforms lists the accepted social platforms in schema order.
var Platforms = []string{
	string(PlatformInstagram),
	string(PlatformFacebook),
	string(PlatformX),
	string(PlatformLinkedIn),
	string(PlatformBluesky),
}
