package audio

import (
	"bufio"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/hraban/opus"

	"github.com/alonePlayerr1/MAI-Bot/internal/platform/errors"
)

const (
	// TargetSampleRate is the rate every normalized file is resampled to.
	TargetSampleRate = 16000

	frameDuration  = 20 // ms
	frameSamples   = TargetSampleRate * frameDuration / 1000
	granulePerFrame = 48000 * frameDuration / 1000
	opusBitrate    = 48000
	opusPreSkip    = 312
)

// Normalizer converts fetched recordings to the transcription contract:
// mono, 16 kHz, Ogg/Opus.
type Normalizer struct {
	scratchDir string
}

// NewNormalizer builds a normalizer writing output files into scratchDir.
func NewNormalizer(scratchDir string) *Normalizer {
	return &Normalizer{scratchDir: scratchDir}
}

// Normalize decodes inputPath, downmixes to mono, resamples to 16 kHz and
// encodes an Ogg/Opus file in the scratch dir. On failure no partial output
// file is left behind.
func (n *Normalizer) Normalize(inputPath string) (string, int, error) {
	decoded, err := decodeFile(inputPath)
	if err != nil {
		return "", 0, err
	}

	mono := downmix(decoded)
	samples, err := resample(mono, decoded.sampleRate, TargetSampleRate)
	if err != nil {
		return "", 0, err
	}

	outputPath := filepath.Join(n.scratchDir, uuid.NewString()+".ogg")
	if err := n.encode(samples, outputPath); err != nil {
		_ = os.Remove(outputPath)
		return "", 0, err
	}
	return outputPath, TargetSampleRate, nil
}

func (n *Normalizer) encode(samples []int16, outputPath string) error {
	enc, err := opus.NewEncoder(TargetSampleRate, 1, opus.AppVoIP)
	if err != nil {
		return errors.Wrap(errors.KindAudio, "audio.encode", "failed to create opus encoder", err)
	}
	if err := enc.SetBitrate(opusBitrate); err != nil {
		return errors.Wrap(errors.KindAudio, "audio.encode", "failed to set opus bitrate", err)
	}

	f, err := os.Create(outputPath)
	if err != nil {
		return errors.Wrap(errors.KindAudio, "audio.encode", "failed to create output file", err)
	}
	defer f.Close()

	buf := bufio.NewWriter(f)
	ogg := newOggWriter(buf, uuid.New().ID())

	if err := ogg.writePage(opusHead(1, opusPreSkip, TargetSampleRate), pageFlagBOS, 0); err != nil {
		return errors.Wrap(errors.KindAudio, "audio.encode", "failed to write opus head", err)
	}
	if err := ogg.writePage(opusTags("mai-bot"), 0, 0); err != nil {
		return errors.Wrap(errors.KindAudio, "audio.encode", "failed to write opus tags", err)
	}

	frame := make([]int16, frameSamples)
	packet := make([]byte, 4000)
	granule := uint64(opusPreSkip)
	for off := 0; off < len(samples); off += frameSamples {
		end := off + frameSamples
		if end > len(samples) {
			// Pad the tail frame with silence.
			copy(frame, samples[off:])
			for i := len(samples) - off; i < frameSamples; i++ {
				frame[i] = 0
			}
		} else {
			copy(frame, samples[off:end])
		}

		size, err := enc.Encode(frame, packet)
		if err != nil {
			return errors.Wrap(errors.KindAudio, "audio.encode", "opus encode failed", err)
		}

		granule += granulePerFrame
		flags := byte(0)
		if end >= len(samples) {
			flags = pageFlagEOS
		}
		if err := ogg.writePage(packet[:size], flags, granule); err != nil {
			return errors.Wrap(errors.KindAudio, "audio.encode", "failed to write audio page", err)
		}
	}

	if err := buf.Flush(); err != nil {
		return errors.Wrap(errors.KindAudio, "audio.encode", "failed to flush output", err)
	}
	return f.Sync()
}
