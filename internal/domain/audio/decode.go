package audio

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	mp3 "github.com/hajimehoshi/go-mp3"

	"github.com/alonePlayerr1/MAI-Bot/internal/platform/errors"
)

// pcm holds interleaved 16-bit samples as produced by a decoder.
type pcm struct {
	samples    []int16
	sampleRate int
	channels   int
}

// decodeFile reads a WAV or MP3 file into raw PCM. The container is picked
// by extension, falling back to sniffing the RIFF magic.
func decodeFile(path string) (pcm, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return pcm{}, errors.Wrap(errors.KindAudio, "audio.decode", "failed to read input file", err)
	}

	ext := strings.ToLower(filepath.Ext(path))
	switch {
	case ext == ".wav" || bytes.HasPrefix(data, []byte("RIFF")):
		return decodeWAV(data)
	case ext == ".mp3":
		return decodeMP3(data)
	default:
		return pcm{}, errors.New(errors.KindAudio, "audio.decode",
			fmt.Sprintf("unsupported audio container: %s", ext))
	}
}

func decodeWAV(data []byte) (pcm, error) {
	if len(data) < 12 || !bytes.HasPrefix(data, []byte("RIFF")) || string(data[8:12]) != "WAVE" {
		return pcm{}, errors.New(errors.KindAudio, "audio.decode", "not a RIFF/WAVE file")
	}

	var (
		format     uint16
		channels   int
		sampleRate int
		bitDepth   int
		raw        []byte
	)

	// Chunk walk. fmt must precede data.
	offset := 12
	for offset+8 <= len(data) {
		id := string(data[offset : offset+4])
		size := int(binary.LittleEndian.Uint32(data[offset+4 : offset+8]))
		body := offset + 8
		if body+size > len(data) {
			size = len(data) - body
		}
		switch id {
		case "fmt ":
			if size < 16 {
				return pcm{}, errors.New(errors.KindAudio, "audio.decode", "malformed fmt chunk")
			}
			format = binary.LittleEndian.Uint16(data[body : body+2])
			channels = int(binary.LittleEndian.Uint16(data[body+2 : body+4]))
			sampleRate = int(binary.LittleEndian.Uint32(data[body+4 : body+8]))
			bitDepth = int(binary.LittleEndian.Uint16(data[body+14 : body+16]))
		case "data":
			raw = data[body : body+size]
		}
		if size%2 == 1 {
			size++
		}
		offset = body + size
	}

	if format != 1 {
		return pcm{}, errors.New(errors.KindAudio, "audio.decode",
			fmt.Sprintf("unsupported WAV format code: %d", format))
	}
	if bitDepth != 16 {
		return pcm{}, errors.New(errors.KindAudio, "audio.decode",
			fmt.Sprintf("unsupported WAV bit depth: %d", bitDepth))
	}
	if channels <= 0 || sampleRate <= 0 || raw == nil {
		return pcm{}, errors.New(errors.KindAudio, "audio.decode", "missing fmt or data chunk")
	}

	samples := make([]int16, len(raw)/2)
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(raw[2*i : 2*i+2]))
	}
	return pcm{samples: samples, sampleRate: sampleRate, channels: channels}, nil
}

func decodeMP3(data []byte) (pcm, error) {
	dec, err := mp3.NewDecoder(bytes.NewReader(data))
	if err != nil {
		return pcm{}, errors.Wrap(errors.KindAudio, "audio.decode", "failed to open mp3 stream", err)
	}

	raw, err := io.ReadAll(dec)
	if err != nil {
		return pcm{}, errors.Wrap(errors.KindAudio, "audio.decode", "failed to decode mp3 stream", err)
	}

	// go-mp3 always emits 16-bit stereo.
	samples := make([]int16, len(raw)/2)
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(raw[2*i : 2*i+2]))
	}
	return pcm{samples: samples, sampleRate: dec.SampleRate(), channels: 2}, nil
}

// downmix collapses interleaved multi-channel PCM to mono by averaging.
func downmix(in pcm) []int16 {
	if in.channels <= 1 {
		return in.samples
	}
	frames := len(in.samples) / in.channels
	out := make([]int16, frames)
	for i := 0; i < frames; i++ {
		sum := 0
		for c := 0; c < in.channels; c++ {
			sum += int(in.samples[i*in.channels+c])
		}
		out[i] = int16(sum / in.channels)
	}
	return out
}

// resample converts mono PCM between rates with linear interpolation.
func resample(in []int16, from, to int) ([]int16, error) {
	if from <= 0 || to <= 0 {
		return nil, errors.New(errors.KindAudio, "audio.resample",
			fmt.Sprintf("invalid sample rate: %d -> %d", from, to))
	}
	if from == to || len(in) == 0 {
		return in, nil
	}

	outLen := int(int64(len(in)) * int64(to) / int64(from))
	if outLen == 0 {
		return []int16{}, nil
	}
	out := make([]int16, outLen)
	ratio := float64(from) / float64(to)
	for i := range out {
		pos := float64(i) * ratio
		idx := int(pos)
		if idx >= len(in)-1 {
			out[i] = in[len(in)-1]
			continue
		}
		frac := pos - float64(idx)
		a := float64(in[idx])
		b := float64(in[idx+1])
		out[i] = int16(a + (b-a)*frac)
	}
	return out, nil
}
