package stt

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alonePlayerr1/MAI-Bot/internal/platform/errors"
)

func TestValidateRequest(t *testing.T) {
	cases := []struct {
		name    string
		req     Request
		wantErr bool
	}{
		{"valid", Request{URI: "gs://lectures/a.ogg", SampleRate: 16000}, false},
		{"zero sample rate", Request{URI: "gs://lectures/a.ogg", SampleRate: 0}, true},
		{"negative sample rate", Request{URI: "gs://lectures/a.ogg", SampleRate: -1}, true},
		{"wrong scheme", Request{URI: "s3://lectures/a.ogg", SampleRate: 16000}, true},
		{"empty uri", Request{URI: "", SampleRate: 16000}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateRequest(tc.req, "gs://")
			if tc.wantErr {
				require.Error(t, err)
				assert.True(t, errors.IsKind(err, errors.KindStage))
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestCreateUnknownProvider(t *testing.T) {
	_, err := Create("nope", Config{})
	require.Error(t, err)
}

func TestCreateWhisperRequiresKey(t *testing.T) {
	_, err := Create("whisper", Config{ResolvePath: func(string) string { return "" }})
	require.Error(t, err)
}

func TestWhisperRejectsInvalidRequestBeforeRemoteCall(t *testing.T) {
	p, err := Create("whisper", Config{
		APIKey:      "test-key",
		ResolvePath: func(string) string { return "" },
	})
	require.NoError(t, err)

	_, err = p.Transcribe(context.Background(), Request{URI: "gs://b/a.ogg", SampleRate: 0})
	require.Error(t, err)
	assert.True(t, errors.IsKind(err, errors.KindStage))
}
