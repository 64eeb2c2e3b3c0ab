// Command trackplay plays or renders a multi-track session described by a
// YAML file: sample clips, synthesized note sequences and grain textures
// positioned on a shared tick timeline.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/wav"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	multitrack "github.com/cbegin/multitrack-go"
	"github.com/cbegin/multitrack-go/internal/audio"
	"github.com/cbegin/multitrack-go/internal/player"
	"github.com/cbegin/multitrack-go/internal/sequence"
)

type sessionFile struct {
	Tempo  float64     `yaml:"tempo"`
	Tracks []trackSpec `yaml:"tracks"`
}

type trackSpec struct {
	ID        string     `yaml:"id"`
	Kind      string     `yaml:"kind"` // sample|sequence|grain
	Position  int        `yaml:"position"`
	TrimStart float64    `yaml:"trim_start"`
	TrimEnd   float64    `yaml:"trim_end"`
	Volume    *int       `yaml:"volume"`
	Muted     bool       `yaml:"muted"`
	Clip      string     `yaml:"clip"`
	Notes     []noteSpec `yaml:"notes"`
}

type noteSpec struct {
	Tick     int `yaml:"tick"`
	Duration int `yaml:"duration"`
	Key      int `yaml:"key"`
	Velocity int `yaml:"velocity"`
}

func main() {
	var (
		sessionPath = flag.String("session", "", "path to a session YAML file")
		sampleRate  = flag.Int("sample-rate", 48000, "output sample rate")
		outPath     = flag.String("out", "", "render offline to a WAV file instead of playing")
		duration    = flag.Float64("duration", 0, "offline render length in seconds (0 = session length)")
		startAt     = flag.Float64("seek", 0, "start playback at this position in seconds")
		verbose     = flag.Bool("verbose", false, "log transport activity")
	)
	flag.Parse()

	if *sessionPath == "" {
		log.Fatal("missing -session")
	}
	sess, err := loadSession(*sessionPath)
	if err != nil {
		log.Fatal(err)
	}

	logger := zerolog.Nop()
	if *verbose {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	}
	eng, err := multitrack.New(*sampleRate,
		multitrack.WithLogger(logger),
		multitrack.WithTempo(sess.Tempo),
	)
	if err != nil {
		log.Fatal(err)
	}
	baseDir := filepath.Dir(*sessionPath)
	for _, spec := range sess.Tracks {
		if err := addTrack(eng, *sampleRate, baseDir, spec); err != nil {
			log.Fatalf("track %s: %v", spec.ID, err)
		}
	}

	if *outPath != "" {
		renderOffline(eng, *sampleRate, *outPath, *duration)
		return
	}
	playLive(eng, *sampleRate, *startAt)
}

func loadSession(path string) (*sessionFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	sess := &sessionFile{Tempo: 120}
	if err := yaml.Unmarshal(data, sess); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if len(sess.Tracks) == 0 {
		return nil, fmt.Errorf("%s: no tracks", path)
	}
	return sess, nil
}

func addTrack(eng *multitrack.Engine, sampleRate int, baseDir string, spec trackSpec) error {
	volume := 100
	if spec.Volume != nil {
		volume = *spec.Volume
	}
	t := &multitrack.Track{
		ID:            multitrack.TrackID(spec.ID),
		PositionTicks: spec.Position,
		TrimStart:     spec.TrimStart,
		TrimEnd:       spec.TrimEnd,
		Volume:        volume,
		Muted:         spec.Muted,
	}
	switch spec.Kind {
	case "sample":
		t.Kind = multitrack.KindSample
		clip, err := loadClip(resolvePath(baseDir, spec.Clip), sampleRate)
		if err != nil {
			return err
		}
		return eng.AddSampleTrack(t, clip)
	case "sequence":
		t.Kind = multitrack.KindSequence
		notes := make(sequence.NoteList, 0, len(spec.Notes))
		for _, n := range spec.Notes {
			notes = append(notes, sequence.Note{
				Tick:          n.Tick,
				DurationTicks: n.Duration,
				Key:           n.Key,
				Velocity:      n.Velocity,
			})
		}
		return eng.AddSequenceTrack(t, notes)
	case "grain":
		t.Kind = multitrack.KindGrain
		clip, err := loadClip(resolvePath(baseDir, spec.Clip), sampleRate)
		if err != nil {
			return err
		}
		return eng.AddGrainTrack(t, clip)
	default:
		return fmt.Errorf("unknown kind %q (expected sample|sequence|grain)", spec.Kind)
	}
}

func resolvePath(baseDir, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(baseDir, path)
}

// loadClip decodes a WAV file into an interleaved stereo buffer, resampling
// to the engine rate when the file disagrees.
func loadClip(path string, sampleRate int) (*player.Clip, error) {
	if path == "" {
		return nil, fmt.Errorf("missing clip path")
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	streamer, format, err := wav.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	defer streamer.Close()

	var src beep.Streamer = streamer
	if int(format.SampleRate) != sampleRate {
		src = beep.Resample(4, format.SampleRate, beep.SampleRate(sampleRate), streamer)
	}

	var data []float32
	buf := make([][2]float64, 512)
	for {
		n, ok := src.Stream(buf)
		for i := 0; i < n; i++ {
			data = append(data, float32(buf[i][0]), float32(buf[i][1]))
		}
		if !ok {
			break
		}
	}
	return &player.Clip{Data: data, SampleRate: sampleRate}, nil
}

func renderOffline(eng *multitrack.Engine, sampleRate int, outPath string, seconds float64) {
	samples, err := eng.RenderSession(seconds)
	if err != nil {
		log.Fatal(err)
	}
	wavData := multitrack.EncodeWAVFloat32LE(samples, sampleRate, 2)
	if err := os.WriteFile(outPath, wavData, 0o644); err != nil {
		log.Fatal(err)
	}
	fmt.Printf("wrote %s (%.2fs)\n", outPath, float64(len(samples)/2)/float64(sampleRate))
}

func playLive(eng *multitrack.Engine, sampleRate int, startAt float64) {
	out, err := audio.NewOutput(sampleRate, eng)
	if err != nil {
		log.Fatal(err)
	}
	defer out.Close()
	eng.SetOutput(out.Start)

	if startAt > 0 {
		eng.Seek(startAt)
	}
	if err := eng.Play(); err != nil {
		log.Fatal(err)
	}
	end := eng.MaxPosition()
	fmt.Printf("playing %.2fs session\n", end)
	for eng.Position() < end {
		time.Sleep(50 * time.Millisecond)
	}
	if err := eng.Stop(); err != nil {
		log.Fatal(err)
	}
	time.Sleep(100 * time.Millisecond) // let the fade settle on the device
	fmt.Println("playback completed")
}
