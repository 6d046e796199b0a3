package instagram

import (
	"testing"

	igerrors "igharvest/pkg/errors"
	"igharvest/pkg/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseItemURL(t *testing.T) {
	tests := []struct {
		name string
		url  string
		want Target
	}{
		{"post", "https://www.instagram.com/p/Cx1-_a/", Target{Kind: models.KindPost, Code: "Cx1-_a"}},
		{"post with owner", "https://instagram.com/alice/p/Cx1/?img_index=1", Target{Kind: models.KindPost, Owner: "alice", Code: "Cx1"}},
		{"reel", "https://www.instagram.com/reel/Rz9/", Target{Kind: models.KindReel, Code: "Rz9"}},
		{"reels path", "https://www.instagram.com/reels/Rz9/", Target{Kind: models.KindReel, Code: "Rz9"}},
		{"reel with owner", "https://www.instagram.com/bob/reel/Rz9", Target{Kind: models.KindReel, Owner: "bob", Code: "Rz9"}},
		{"story", "https://www.instagram.com/stories/carol/3300000000000000000/", Target{Kind: models.KindStory, Owner: "carol", Code: "3300000000000000000"}},
		{"highlight", "https://www.instagram.com/stories/highlights/17900000000000000/", Target{Kind: models.KindHighlight, Code: "17900000000000000"}},
		{"highlight with owner", "https://www.instagram.com/dave/stories/highlights/179/", Target{Kind: models.KindHighlight, Owner: "dave", Code: "179"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseItemURL(tt.url)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.NoError(t, ValidateURL(tt.url))
		})
	}
}

func TestParseItemURLRejects(t *testing.T) {
	for _, raw := range []string{
		"https://www.instagram.com/alice/",
		"https://example.com/p/abc",
		"not a url",
		"",
	} {
		_, err := ParseItemURL(raw)
		assert.Equal(t, igerrors.KindInvalidURL, igerrors.KindOf(err), raw)
		assert.Equal(t, igerrors.KindInvalidURL, igerrors.KindOf(ValidateURL(raw)), raw)
	}
}

func TestValidateURLRequiresScheme(t *testing.T) {
	err := ValidateURL("instagram.com/p/abc")
	assert.Equal(t, igerrors.KindInvalidURL, igerrors.KindOf(err))
	assert.Equal(t, igerrors.CategoryConfig, igerrors.CategoryOf(err))
}
