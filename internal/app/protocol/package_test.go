package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAndDecode_RoundTrip(t *testing.T) {
	t.Parallel()

	pkg, err := New(TypeGuestLogin, GuestLoginContent{Name: "wanderer"})
	require.NoError(t, err)
	assert.Equal(t, TypeGuestLogin, pkg.Type)

	content, err := Decode[GuestLoginContent](pkg)
	require.NoError(t, err)
	assert.Equal(t, "wanderer", content.Name)
}

func TestNew_NilContent(t *testing.T) {
	t.Parallel()

	pkg, err := New(TypeMeta, nil)
	require.NoError(t, err)
	assert.Empty(t, pkg.Content)
}

func TestDecode_EmptyContentYieldsZeroValue(t *testing.T) {
	t.Parallel()

	content, err := Decode[MemberLoginContent](Package{Type: TypeMemberLogin})
	require.NoError(t, err)
	assert.Zero(t, content)
}

func TestDecode_MalformedContent(t *testing.T) {
	t.Parallel()

	pkg := Package{Type: TypeInput, Content: []byte(`{"channelId": 42}`)}

	_, err := Decode[InputContent](pkg)
	assert.Error(t, err)
}

func TestParse_ValidEnvelope(t *testing.T) {
	t.Parallel()

	pkg, err := Parse([]byte(`{"type":"INPUT","content":{"channelId":"main","message":"hi"}}`))
	require.NoError(t, err)
	assert.Equal(t, TypeInput, pkg.Type)

	content, err := Decode[InputContent](pkg)
	require.NoError(t, err)
	assert.Equal(t, "main", content.ChannelID)
	assert.Equal(t, "hi", content.Message)
}

func TestParse_MissingType(t *testing.T) {
	t.Parallel()

	_, err := Parse([]byte(`{"content":{}}`))
	assert.Error(t, err)
}

func TestParse_MalformedJSON(t *testing.T) {
	t.Parallel()

	_, err := Parse([]byte(`{"type":`))
	assert.Error(t, err)
}

func TestEncode_OmitsEmptyContent(t *testing.T) {
	t.Parallel()

	raw, err := Encode(Package{Type: TypeMeta})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"META"}`, string(raw))
}

func TestTarget_To(t *testing.T) {
	t.Parallel()

	target := To("client-1")
	assert.False(t, target.Broadcast)
	assert.Equal(t, "client-1", target.ClientID)
}

func TestTarget_AllExcept(t *testing.T) {
	t.Parallel()

	target := AllExcept("client-1", "client-2")
	assert.True(t, target.Broadcast)
	assert.True(t, target.Excludes("client-1"))
	assert.True(t, target.Excludes("client-2"))
	assert.False(t, target.Excludes("client-3"))
}
