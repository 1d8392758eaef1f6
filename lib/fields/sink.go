package fields

import (
	"fmt"
	"os"
	"path/filepath"

	"snapfields/lib/recio"
)

// SinkHandler reads the sink-particle files of an output
// (sink_XXXXX.outYYYYY). Sink files have a fixed schema, so no
// inference is needed, but the code writes a zero-length file on
// domains that host no sinks, so presence requires a non-empty check.
type SinkHandler struct{ }

var (
	_ Descriptor    = &SinkHandler{ }
	_ ExistsChecker = &SinkHandler{ }
)

func (s *SinkHandler) FType() string { return "sink" }

func (s *SinkHandler) FileName(iout, icpu int) string {
	return fmt.Sprintf("sink_%05d.out%05d", iout, icpu)
}

func (s *SinkHandler) Attrs() []recio.Attr {
	return []recio.Attr{
		{ Name: "nsink", Count: 1, Type: recio.Int32 },
		{ Name: "nindsink", Count: 1, Type: recio.Int32 },
	}
}

// Exists requires the file to be present and non-empty.
func (s *SinkHandler) Exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir() && info.Size() > 0
}

func (s *SinkHandler) AnyExist(ds Dataset) bool {
	for icpu := 1; icpu <= ds.NumDomains(); icpu++ {
		name := s.FileName(ds.OutputIndex(), icpu)
		if s.Exists(filepath.Join(ds.Dir(), name)) {
			return true
		}
	}
	return false
}

func (s *SinkHandler) FieldList(
	ds Dataset, hd recio.Header,
) ([]string, error) {
	return []string{
		"particle_identifier", "particle_mass",
		"particle_position_x", "particle_position_y", "particle_position_z",
		"particle_velocity_x", "particle_velocity_y", "particle_velocity_z",
		"particle_birth_time",
	}, nil
}
