package mailpipe

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddTo(t *testing.T) {
	b := NewBuilder()
	assert.NoError(t, b.AddTo("a@b.com"))
	assert.NoError(t, b.AddTo("c@d.org"))
	assert.NoError(t, b.AddTo("a@b.com"))
	assert.NoError(t, b.AddTo(" a@b.com "))
	assert.Equal(t, []string{"a@b.com", "c@d.org"}, b.Recipients())
}

func TestAddToInvalid(t *testing.T) {
	cases := []string{
		"no-at-sign",
		"@example.com",
		"user@",
		"",
		"two words@example.com",
	}
	for _, c := range cases {
		b := NewBuilder()
		require.NoError(t, b.AddTo("ok@example.com"))
		err := b.AddTo(c)
		var invalid *InvalidRecipientError
		if !assert.ErrorAs(t, err, &invalid, c) {
			continue
		}
		assert.Equal(t, c, invalid.Address)
		assert.Equal(t, []string{"ok@example.com"}, b.Recipients())
	}
}

func TestRecipientOrderAcrossKinds(t *testing.T) {
	b := NewBuilder()
	require.NoError(t, b.AddTo("to@x.com"))
	require.NoError(t, b.AddCc("cc@x.com"))
	require.NoError(t, b.AddBcc("bcc@x.com"))
	// already present as To; the Cc add must not duplicate it
	require.NoError(t, b.AddCc("to@x.com"))
	assert.Equal(t, []string{"to@x.com", "cc@x.com", "bcc@x.com"}, b.Recipients())
}

func writeRecipientsFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadRecipientsFromFileLayouts(t *testing.T) {
	want := []string{"a@x.com", "b@y.com"}
	cases := map[string]string{
		"object.json": `{"recipients": ["a@x.com", "b@y.com"]}`,
		"array.json":  `["a@x.com", "b@y.com"]`,
		"list.yaml":   "recipients:\n  - a@x.com\n  - b@y.com\n",
		"plain.txt":   "a@x.com\n\nb@y.com\n",
	}
	for name, content := range cases {
		b := NewBuilder()
		err := b.LoadRecipientsFromFile(writeRecipientsFile(t, name, content))
		if !assert.NoError(t, err, name) {
			continue
		}
		assert.Equal(t, want, b.Recipients(), name)
	}
}

func TestLoadRecipientsFromFileErrors(t *testing.T) {
	b := NewBuilder()
	var fileErr *RecipientFileError
	err := b.LoadRecipientsFromFile(filepath.Join(t.TempDir(), "missing.json"))
	assert.ErrorAs(t, err, &fileErr)

	err = b.LoadRecipientsFromFile(writeRecipientsFile(t, "nokey.json", `{"addresses": ["a@x.com"]}`))
	assert.ErrorAs(t, err, &fileErr)

	err = b.LoadRecipientsFromFile(writeRecipientsFile(t, "empty.json", `{"recipients": []}`))
	assert.ErrorAs(t, err, &fileErr)

	err = b.LoadRecipientsFromFile(writeRecipientsFile(t, "blank.txt", "\n\n"))
	assert.ErrorAs(t, err, &fileErr)

	err = b.LoadRecipientsFromFile(writeRecipientsFile(t, "types.json", `{"recipients": ["a@x.com", 42]}`))
	assert.ErrorAs(t, err, &fileErr)
}

func TestLoadRecipientsPartialApplication(t *testing.T) {
	b := NewBuilder()
	err := b.LoadRecipientsFromFile(writeRecipientsFile(t, "mixed.json",
		`["a@x.com", "not an address", "c@x.com"]`))
	var invalid *InvalidRecipientError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, "not an address", invalid.Address)
	// entries before the bad one stay loaded
	assert.Equal(t, []string{"a@x.com"}, b.Recipients())
}

func TestSetBody(t *testing.T) {
	b := NewBuilder()
	assert.NoError(t, b.SetBody("hello", BodyPlain))
	assert.NoError(t, b.SetBody("<p>hello</p>", BodyHTML))

	err := b.SetBody("hello", BodyType("markdown"))
	var unsupported *UnsupportedBodyTypeError
	require.ErrorAs(t, err, &unsupported)
	assert.Equal(t, "markdown", unsupported.Subtype)
}

func TestAttachFile(t *testing.T) {
	dir := t.TempDir()
	pdf := filepath.Join(dir, "report.pdf")
	require.NoError(t, os.WriteFile(pdf, []byte("%PDF-1.4 fake"), 0o644))
	blob := filepath.Join(dir, "data.qqq")
	require.NoError(t, os.WriteFile(blob, []byte{0x00, 0x01, 0x02}, 0o644))

	b := NewBuilder()
	require.NoError(t, b.AddTo("a@b.com"))
	b.SetSubject("Hi")
	require.NoError(t, b.SetBody("Hello", BodyPlain))
	require.NoError(t, b.AttachFile(pdf))
	require.NoError(t, b.AttachFile(blob))

	m, err := b.Build()
	require.NoError(t, err)
	doc := string(m.Bytes())
	assert.Contains(t, doc, "Content-Type: application/pdf\r\n")
	assert.Contains(t, doc, `Content-Disposition: attachment; filename="report.pdf"`)
	assert.Contains(t, doc, "Content-Type: application/octet-stream\r\n")
	assert.Contains(t, doc, `Content-Disposition: attachment; filename="data.qqq"`)
}

func TestAttachFileMissing(t *testing.T) {
	b := NewBuilder()
	err := b.AttachFile(filepath.Join(t.TempDir(), "nope.bin"))
	var readErr *AttachmentReadError
	assert.ErrorAs(t, err, &readErr)
}

func TestBuildIncomplete(t *testing.T) {
	b := NewBuilder()
	_, err := b.Build()
	var incomplete *IncompleteMessageError
	require.ErrorAs(t, err, &incomplete)
	assert.Equal(t, []string{"recipients", "subject", "body"}, incomplete.Missing)

	require.NoError(t, b.AddTo("a@b.com"))
	_, err = b.Build()
	require.ErrorAs(t, err, &incomplete)
	assert.Equal(t, []string{"subject", "body"}, incomplete.Missing)

	b.SetSubject("Hi")
	_, err = b.Build()
	require.ErrorAs(t, err, &incomplete)
	assert.Equal(t, []string{"body"}, incomplete.Missing)

	require.NoError(t, b.SetBody("Hello", BodyPlain))
	m, err := b.Build()
	require.NoError(t, err)
	assert.Equal(t, []string{"a@b.com"}, m.Recipients())
}

func TestWithPermissiveLocalPart(t *testing.T) {
	strict := NewBuilder()
	assert.Error(t, strict.AddTo(`us"er@example.com`))

	lax := NewBuilder(WithPermissiveLocalPart(true))
	assert.NoError(t, lax.AddTo(`us"er@example.com`))
}
