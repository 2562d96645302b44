package tools

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intp(n int) *int    { return &n }
func boolp(b bool) *bool { return &b }

func TestValidate_Accepts(t *testing.T) {
	reg := Default()
	tests := []struct {
		name string
		kind Kind
		args string
		want Params
	}{
		{"resize", KindResize, `{"type":"resize","publicId":" cat ","width":800,"height":600}`,
			ResizeParams{PublicID: "cat", Width: 800, Height: 600}},
		{"integral float", KindResize, `{"type":"resize","publicId":"cat","width":800.0,"height":6e2}`,
			ResizeParams{PublicID: "cat", Width: 800, Height: 600}},
		{"format is lowercased", KindChangeFormat, `{"type":"changeFormat","publicId":"cat","format":"WEBP"}`,
			ChangeFormatParams{PublicID: "cat", Format: FormatWebP}},
		{"generateFill without optionals", KindGenerateFill, `{"type":"generateFill","publicId":"b","prompt":"sea"}`,
			GenerateFillParams{PublicID: "b", Prompt: "sea"}},
		{"generateFill with optionals", KindGenerateFill, `{"type":"generateFill","publicId":"b","prompt":"sea","width":100,"seed":0}`,
			GenerateFillParams{PublicID: "b", Prompt: "sea", Width: intp(100), Seed: intp(0)}},
		{"replaceObject", KindReplaceObject, `{"type":"replaceObject","publicId":"s","from":"car","to":"bus","preserveGeometry":true}`,
			ReplaceObjectParams{PublicID: "s", From: "car", To: "bus", PreserveGeometry: boolp(true)}},
		{"socialCrop", KindSocialCrop, `{"type":"socialCrop","publicId":"p","platform":"LinkedIn"}`,
			SocialCropParams{PublicID: "p", Platform: PlatformLinkedIn}},
		{"capabilities", KindCapabilities, `{"type":"capabilities"}`, CapabilitiesParams{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inv, err := reg.Validate(tt.kind, tt.args)
			require.NoError(t, err)
			assert.True(t, inv.Valid())
			assert.Equal(t, tt.kind, inv.Kind())
			if diff := cmp.Diff(tt.want, inv.Params()); diff != "" {
				t.Errorf("params mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestValidate_Rejects(t *testing.T) {
	reg := Default()
	tests := []struct {
		name  string
		kind  Kind
		args  string
		field string
	}{
		{"zero width", KindResize, `{"type":"resize","publicId":"cat","width":0,"height":600}`, "width"},
		{"negative height", KindResize, `{"type":"resize","publicId":"cat","width":800,"height":-1}`, "height"},
		{"fractional width", KindResize, `{"type":"resize","publicId":"cat","width":800.5,"height":600}`, "width"},
		{"string width", KindResize, `{"type":"resize","publicId":"cat","width":"800","height":600}`, "width"},
		{"huge width", KindResize, `{"type":"resize","publicId":"cat","width":99999999999,"height":600}`, "width"},
		{"missing height", KindResize, `{"type":"resize","publicId":"cat","width":800}`, "height"},
		{"blank publicId", KindAutoEnhance, `{"type":"autoEnhance","publicId":"   "}`, "publicId"},
		{"null publicId", KindAutoEnhance, `{"type":"autoEnhance","publicId":null}`, "publicId"},
		{"unknown format", KindChangeFormat, `{"type":"changeFormat","publicId":"cat","format":"gif"}`, "format"},
		{"unknown platform", KindSocialCrop, `{"type":"socialCrop","publicId":"cat","platform":"myspace"}`, "platform"},
		{"fill zero width", KindGenerateFill, `{"type":"generateFill","publicId":"b","prompt":"x","width":0}`, "width"},
		{"fill negative width", KindGenerateFill, `{"type":"generateFill","publicId":"b","prompt":"x","width":-1}`, "width"},
		{"fill zero height", KindGenerateFill, `{"type":"generateFill","publicId":"b","prompt":"x","height":0}`, "height"},
		{"fill negative height", KindGenerateFill, `{"type":"generateFill","publicId":"b","prompt":"x","width":800,"height":-5}`, "height"},
		{"negative seed", KindGenerateFill, `{"type":"generateFill","publicId":"b","prompt":"x","seed":-3}`, "seed"},
		{"bool as string", KindReplaceObject, `{"type":"replaceObject","publicId":"s","from":"a","to":"b","preserveGeometry":"yes"}`, "preserveGeometry"},
		{"unknown field", KindRemoveBackground, `{"type":"removeBackground","publicId":"cat","strength":3}`, "strength"},
		{"missing discriminant", KindAutoEnhance, `{"publicId":"cat"}`, "type"},
		{"non-string discriminant", KindAutoEnhance, `{"type":1,"publicId":"cat"}`, "type"},
		{"not an object", KindAutoEnhance, `[1,2]`, ""},
		{"trailing data", KindResize, `{"type":"resize","publicId":"cat","width":800,"height":600} junk`, ""},
		{"second object", KindAutoEnhance, `{"type":"autoEnhance","publicId":"cat"}{"x":1}`, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inv, err := reg.Validate(tt.kind, tt.args)
			require.Error(t, err)
			assert.False(t, inv.Valid())
			var ve *ValidationError
			require.True(t, errors.As(err, &ve), "want *ValidationError, got %T", err)
			assert.Equal(t, tt.kind, ve.Kind)
			assert.Equal(t, tt.field, ve.Field)
		})
	}
}

func TestValidate_DiscriminantMismatch(t *testing.T) {
	_, err := Default().Validate(KindResize, `{"type":"changeFormat","publicId":"cat","width":1,"height":1}`)
	var de *DiscriminantError
	require.True(t, errors.As(err, &de), "want *DiscriminantError, got %T", err)
	assert.Equal(t, KindResize, de.Kind)
	assert.Equal(t, "changeFormat", de.Got)

	var ve *ValidationError
	assert.False(t, errors.As(err, &ve))
}

func TestValidate_UnknownKind(t *testing.T) {
	_, err := Default().Validate("sharpen", `{"type":"sharpen"}`)
	assert.ErrorIs(t, err, ErrUnknownKind)
}

func TestValidate_EmptyArgs(t *testing.T) {
	_, err := Default().Validate(KindCapabilities, "")
	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, DiscriminantField, ve.Field)
}
