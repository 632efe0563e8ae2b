package templater

import (
	"fmt"
	"strings"
	"testing"

	"phishsim/entity"
	"phishsim/pkg/goutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const baseURL = "https://phish.example.com"

func testInput() *RenderInput {
	return &RenderInput{
		CampaignID: 7,
		TargetID:   42,
		Target: &entity.Target{
			FirstName: goutil.String("Ann"),
			LastName:  goutil.String("Lee"),
			Email:     goutil.String("ann.lee@corp.example.com"),
			Position:  goutil.String("Accountant"),
		},
		SenderName: "IT Support",
	}
}

func TestMergeFields(t *testing.T) {
	tp := New(baseURL)

	html := "Hello {{FirstName}}, go to {{TrackingURL}}"
	got := tp.MergeFields(html, testInput())

	assert.Equal(t, "Hello Ann, go to https://phish.example.com/l/7/42", got)
}

func TestMergeFields_AllPlaceholders(t *testing.T) {
	tp := New(baseURL)

	html := "{{FirstName}}|{{LastName}}|{{Email}}|{{Position}}|{{SenderName}}"
	got := tp.MergeFields(html, testInput())

	assert.Equal(t, "Ann|Lee|ann.lee@corp.example.com|Accountant|IT Support", got)
}

func TestMergeFields_UnknownPlaceholderKept(t *testing.T) {
	tp := New(baseURL)

	got := tp.MergeFields("Hi {{Nickname}}", testInput())

	assert.Equal(t, "Hi {{Nickname}}", got)
}

func TestMergeFields_NilTarget(t *testing.T) {
	tp := New(baseURL)

	got := tp.MergeFields("Hi {{FirstName}}", &RenderInput{CampaignID: 7, TargetID: 42})

	assert.Equal(t, "Hi ", got)
}

func TestRewriteLink(t *testing.T) {
	tp := New(baseURL)

	tests := []struct {
		name      string
		rawURL    string
		rewritten bool
	}{
		{"http", "http://evil-lookalike.example.com/login", true},
		{"https", "https://evil-lookalike.example.com/login?a=1&b=2", true},
		{"empty", "", false},
		{"mailto", "mailto:helpdesk@corp.example.com", false},
		{"tel", "tel:+15550100", false},
		{"javascript", "javascript:void(0)", false},
		{"mixed case scheme", "MAILTO:x@y.example.com", false},
		{"relative", "/unsubscribe", false},
		{"fragment", "#details", false},
		{"ftp", "ftp://files.example.com/doc.pdf", false},
		{"already instrumented", baseURL + "/c/7/42?u=abc", false},
		{"unparseable", "http://bad url with spaces", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, result := tp.RewriteLink(tt.rawURL, 7, 42)

			if !tt.rewritten {
				assert.Equal(t, LinkPassedThrough, result)
				assert.Equal(t, tt.rawURL, got)
				return
			}

			assert.Equal(t, LinkRewritten, result)
			assert.True(t, strings.HasPrefix(got, baseURL+"/c/7/42?u="))

			dest, err := DecodeClickToken(strings.TrimPrefix(got, baseURL+"/c/7/42?u="))
			require.NoError(t, err)
			assert.Equal(t, tt.rawURL, dest)
		})
	}
}

func TestRewriteLinks(t *testing.T) {
	tp := New(baseURL)

	html := `<a href="https://evil.example.com/x">click</a> <a href="mailto:a@b.example.com">mail</a>`
	got := tp.RewriteLinks(html, 7, 42)

	assert.Contains(t, got, baseURL+"/c/7/42?u=")
	assert.Contains(t, got, `href="mailto:a@b.example.com"`)
	assert.NotContains(t, got, `href="https://evil.example.com/x"`)
}

func TestRewriteLinks_Idempotent(t *testing.T) {
	tp := New(baseURL)

	html := `<a href="https://evil.example.com/x">click</a>`
	once := tp.RewriteLinks(html, 7, 42)
	twice := tp.RewriteLinks(once, 7, 42)

	assert.Equal(t, once, twice)
}

func TestRewriteLinks_PlainTextURLUntouched(t *testing.T) {
	tp := New(baseURL)

	html := `visit https://evil.example.com/x today`
	got := tp.RewriteLinks(html, 7, 42)

	assert.Equal(t, html, got)
}

func TestInjectPixel(t *testing.T) {
	tp := New(baseURL)
	pixelSrc := baseURL + "/o/7/42.gif"

	t.Run("before closing body tag", func(t *testing.T) {
		got := tp.InjectPixel("<html><body>hi</body></html>", 7, 42)

		assert.Equal(t, 1, strings.Count(got, pixelSrc))
		assert.Less(t, strings.Index(got, pixelSrc), strings.Index(got, "</body>"))
	})

	t.Run("case insensitive body tag", func(t *testing.T) {
		got := tp.InjectPixel("<HTML><BODY>hi</BODY></HTML>", 7, 42)

		assert.Equal(t, 1, strings.Count(got, pixelSrc))
		assert.Less(t, strings.Index(got, pixelSrc), strings.Index(got, "</BODY>"))
	})

	t.Run("no body tag appends", func(t *testing.T) {
		got := tp.InjectPixel("hello", 7, 42)

		assert.True(t, strings.HasPrefix(got, "hello"))
		assert.Contains(t, got, pixelSrc)
	})
}

func TestEncodeDecodeClickToken(t *testing.T) {
	urls := []string{
		"https://evil.example.com/login",
		"https://evil.example.com/x?q=a b&r=1+2",
		"https://evil.example.com/p?u=%2Fnested%2Fpath",
		"https://evil.example.com/unicode/über",
	}

	for _, u := range urls {
		t.Run(u, func(t *testing.T) {
			token := EncodeClickToken(u)

			got, err := DecodeClickToken(token)
			require.NoError(t, err)
			assert.Equal(t, u, got)
		})
	}
}

func TestDecodeClickToken_AlreadyUnescaped(t *testing.T) {
	original := "https://evil.example.com/login"
	token := goutil.Base64Encode(original)

	got, err := DecodeClickToken(token)
	require.NoError(t, err)
	assert.Equal(t, original, got)
}

func TestDecodeClickToken_Invalid(t *testing.T) {
	_, err := DecodeClickToken("!!not-base64!!")
	assert.Error(t, err)
}

func TestRender(t *testing.T) {
	tp := New(baseURL)

	html := `<html><body>Hi {{FirstName}}, <a href="https://evil.example.com/login">update your password</a></body></html>`
	got := tp.Render(html, testInput())

	assert.Contains(t, got, "Hi Ann,")
	assert.Contains(t, got, baseURL+"/c/7/42?u=")
	assert.Contains(t, got, baseURL+"/o/7/42.gif")
	assert.NotContains(t, got, `href="https://evil.example.com/login"`)
}

func TestURLBuilders(t *testing.T) {
	tp := New(baseURL + "/")

	assert.Equal(t, baseURL+"/l/7/42", tp.TrackingURL(7, 42))
	assert.Equal(t, baseURL+"/o/7/42.gif", tp.PixelURL(7, 42))

	clickURL := tp.ClickURL(7, 42, "https://a.example.com")
	assert.Equal(t, fmt.Sprintf("%s/c/7/42?u=%s", baseURL, EncodeClickToken("https://a.example.com")), clickURL)
}
