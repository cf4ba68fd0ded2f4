package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"asfdemux/internal/api"
	"asfdemux/internal/app"
	"asfdemux/internal/config"
	"asfdemux/pkg/asf"
	"asfdemux/pkg/demux"
	"asfdemux/pkg/utils"
)

var (
	configPath string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:           "asfdemux",
	Short:         "ASF container demultiplexer.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var infoCmd = &cobra.Command{
	Use:   "info <file>",
	Short: "Print container and track information as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		return runInfo(cmd.OutOrStdout(), args[0], cfg.ToDemuxOptions())
	},
}

var dumpOpts struct {
	track  int
	count  int
	seekUs int64
	mode   string
}

var dumpCmd = &cobra.Command{
	Use:   "dump <file>",
	Short: "Print sample buffers of one track",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		var seek *demux.ReadOptions
		if cmd.Flags().Changed("seek-us") {
			mode, err := demux.ParseSeekMode(dumpOpts.mode)
			if err != nil {
				return err
			}
			seek = demux.SeekTo(dumpOpts.seekUs, mode)
		}
		return runDump(cmd.OutOrStdout(), args[0], cfg.ToDemuxOptions(), dumpOpts.track, dumpOpts.count, seek)
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the HTTP inspection API",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		return app.NewApp(cfg).Start()
	},
}

var genOpts struct {
	seconds    int
	packetSize uint32
	preroll    uint64
	noIndex    bool
	encrypted  bool
}

var genCmd = &cobra.Command{
	Use:   "gen <output>",
	Short: "Write a synthetic audio/video ASF file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := loadConfig(); err != nil {
			return err
		}
		f, err := os.Create(args[0])
		if err != nil {
			return err
		}
		defer utils.CloseWithLog(f, args[0])

		n, err := writeSynthetic(f, genOpts.seconds, asf.MuxerConfig{
			PacketSize: genOpts.packetSize,
			Preroll:    genOpts.preroll,
			NoIndex:    genOpts.noIndex,
		}, genOpts.encrypted)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %d bytes to %s\n", n, args[0])
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default configs/default.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override logging level (debug, info, warn, error)")

	dumpCmd.Flags().IntVarP(&dumpOpts.track, "track", "t", 0, "track index")
	dumpCmd.Flags().IntVarP(&dumpOpts.count, "count", "n", 0, "maximum number of samples (0 = all)")
	dumpCmd.Flags().Int64Var(&dumpOpts.seekUs, "seek-us", 0, "seek before reading (microseconds)")
	dumpCmd.Flags().StringVar(&dumpOpts.mode, "mode", "previous_sync", "seek mode")

	genCmd.Flags().IntVar(&genOpts.seconds, "seconds", 10, "duration in seconds")
	genCmd.Flags().Uint32Var(&genOpts.packetSize, "packet-size", asf.DefaultPacketSize, "data packet size")
	genCmd.Flags().Uint64Var(&genOpts.preroll, "preroll", 0, "preroll in milliseconds")
	genCmd.Flags().BoolVar(&genOpts.noIndex, "no-index", false, "omit the simple index")
	genCmd.Flags().BoolVar(&genOpts.encrypted, "encrypted", false, "mark the video stream encrypted")

	rootCmd.SetOut(os.Stdout)
	rootCmd.SetErr(os.Stderr)
	rootCmd.AddCommand(infoCmd, dumpCmd, serveCmd, genCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}

// loadConfig 설정을 읽고 로거를 초기화
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	app.InitLogger(cfg)
	return cfg, nil
}

func runInfo(w io.Writer, path string, opts demux.Options) error {
	e, err := demux.OpenFile(path, opts)
	if err != nil {
		return err
	}
	defer utils.CloseWithLog(e, path)

	out := api.InfoResponse{
		Name:      filepath.Base(path),
		Container: e.Metadata(),
	}
	for i := 0; i < e.CountTracks(); i++ {
		f, err := e.TrackFormat(i)
		if err != nil {
			return err
		}
		out.Tracks = append(out.Tracks, api.TrackInfo{Index: i, Type: f.Type.String(), Format: f})
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func runDump(w io.Writer, path string, opts demux.Options, track, count int, seek *demux.ReadOptions) error {
	e, err := demux.OpenFile(path, opts)
	if err != nil {
		return err
	}
	defer utils.CloseWithLog(e, path)

	src, err := e.Track(track)
	if err != nil {
		return err
	}
	f := src.Format()
	fmt.Fprintf(w, "track %d: %s stream %d (%s)\n", track, f.Type, f.StreamNumber, f.MIME)

	for n := 0; count == 0 || n < count; n++ {
		buf, err := src.Read(seek)
		seek = nil
		if errors.Is(err, demux.ErrEndOfStream) {
			fmt.Fprintln(w, "end of stream")
			break
		}
		if err != nil {
			return err
		}
		offset, size := buf.Range()
		meta := buf.Meta()
		sync := ""
		if meta.IsSync {
			sync = " sync"
		}
		fmt.Fprintf(w, "%6d time=%dus range=[%d,%d)%s\n", n, meta.TimeUs, offset, offset+size, sync)
		buf.Release()
	}

	s := e.Stats()
	fmt.Fprintf(w, "packets=%d dropped=%d payloadsDropped=%d seeks=%d\n",
		s.PacketsRead, s.PacketsDropped, s.PayloadsDropped, s.Seeks)
	return nil
}

// writeSynthetic 1초 GOP 비디오(5fps)와 오디오(10Hz)로 된 ASF 파일 생성
func writeSynthetic(w io.Writer, seconds int, cfg asf.MuxerConfig, encrypted bool) (int64, error) {
	m := asf.NewMuxer(cfg)
	if err := m.AddStream(asf.StreamInfo{
		Number: 1,
		Kind:   asf.StreamKindAudio,
		Audio:  &asf.AudioInfo{CodecID: asf.CodecIDWMAv2, Channels: 2, SampleRate: 44100, BitsPerSample: 16},
	}); err != nil {
		return 0, err
	}
	if err := m.AddStream(asf.StreamInfo{
		Number:    2,
		Kind:      asf.StreamKindVideo,
		Encrypted: encrypted,
		Video:     &asf.VideoInfo{Width: 640, Height: 360, FourCC: asf.FourCC("WVC1")},
	}); err != nil {
		return 0, err
	}

	for ms := 0; ms < seconds*1000; ms += 100 {
		if ms%200 == 0 {
			video := make([]byte, 6000)
			video[0] = byte(ms / 100)
			if err := m.WriteObject(2, uint32(ms), ms%1000 == 0, video); err != nil {
				return 0, err
			}
		}
		audio := make([]byte, 400)
		audio[0] = byte(ms / 100)
		if err := m.WriteObject(1, uint32(ms), true, audio); err != nil {
			return 0, err
		}
	}
	return m.WriteTo(w)
}
