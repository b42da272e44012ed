package soft

import (
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// Profiles is the YAML document read by LoadProfiles.
type Profiles struct {
	Devices []Options `yaml:"devices"`
}

// LoadProfiles decodes device profiles from r. Unknown keys are rejected.
func LoadProfiles(r io.Reader) ([]Options, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var p Profiles
	if err := dec.Decode(&p); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("soft: empty profile document")
		}
		return nil, fmt.Errorf("soft: decode profiles: %w", err)
	}
	seen := make(map[string]bool, len(p.Devices))
	for i := range p.Devices {
		o := &p.Devices[i]
		if o.Name == "" {
			o.Name = fmt.Sprintf("soft%d", i)
		}
		if seen[o.Name] {
			return nil, fmt.Errorf("soft: duplicate device profile %q", o.Name)
		}
		seen[o.Name] = true
		if o.RowAlignment == 0 {
			o.RowAlignment = 1
		}
	}
	return p.Devices, nil
}

// MarshalProfiles encodes device profiles as YAML.
func MarshalProfiles(devices []Options) ([]byte, error) {
	return yaml.Marshal(Profiles{Devices: devices})
}

// NewFromOptions creates a device from a decoded profile.
func NewFromOptions(o Options) *Device {
	return newDevice(o)
}
