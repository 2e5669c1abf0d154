package conversation

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMessageJSONCarriesPayloadDiscriminator(t *testing.T) {
	msg := NewMessage(RoleModel, "Aqui está sua imagem!",
		WithPayload(&Image{URL: "data:image/png;base64,AAAA"}))

	data, err := json.Marshal(msg)
	require.NoError(t, err)
	require.Contains(t, string(data), `"payloadType":"image"`)

	decoded := &Message{}
	require.NoError(t, json.Unmarshal(data, decoded))

	image, ok := decoded.Payload.(*Image)
	require.True(t, ok)
	require.Equal(t, "data:image/png;base64,AAAA", image.URL)
	require.Equal(t, msg.ID, decoded.ID)
}

func TestMessageJSONWithoutPayload(t *testing.T) {
	msg := NewMessage(RoleUser, "oi")

	data, err := json.Marshal(msg)
	require.NoError(t, err)
	require.NotContains(t, string(data), "payloadType")

	decoded := &Message{}
	require.NoError(t, json.Unmarshal(data, decoded))
	require.Nil(t, decoded.Payload)
}

func TestMessageJSONRejectsUnknownPayloadType(t *testing.T) {
	raw := `{"id":"5a3cb632-cc35-4e07-bc4a-6532f4521fc5","role":"model","payloadType":"hologram","payload":{}}`

	err := json.Unmarshal([]byte(raw), &Message{})
	require.Error(t, err)
}
