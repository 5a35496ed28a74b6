package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSerializeRoundTrip(t *testing.T) {
	in := PostCreatedEvent{
		BaseEvent: BaseEvent{ID: "e1", Type: PostCreated, Source: "web", Version: "1.0"},
		PostID:    4,
		Summary:   "s",
		Tags:      []string{"travel"},
		Origin:    "api",
	}

	data, typ, err := SerializeEvent(in)
	require.NoError(t, err)
	assert.Equal(t, PostCreated, typ)

	out, err := DeserializeEvent(typ, data)
	require.NoError(t, err)
	got, ok := out.(*PostCreatedEvent)
	require.True(t, ok)
	assert.Equal(t, in, *got)
}

func TestSerializeUnknownType(t *testing.T) {
	_, _, err := SerializeEvent(struct{}{})
	assert.Error(t, err)

	_, err = DeserializeEvent("post.unknown", []byte(`{}`))
	assert.Error(t, err)
}
