package reference

import (
	"io"
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// LoadFile reads a YAML overlay and applies it on top of Default. Sections
// present in the file replace the corresponding default section entirely;
// absent sections keep their defaults.
func LoadFile(path string) (*Tables, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "reference: open %s", path)
	}
	defer f.Close() //nolint:errcheck
	return Load(f)
}

// Load reads a YAML overlay from r. See LoadFile.
func Load(r io.Reader) (*Tables, error) {
	var overlay Tables
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&overlay); err != nil && err != io.EOF {
		return nil, eris.Wrap(err, "reference: decode yaml")
	}
	return merge(Default(), &overlay), nil
}

// Dump writes t as YAML.
func Dump(w io.Writer, t *Tables) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(t); err != nil {
		return eris.Wrap(err, "reference: encode yaml")
	}
	return eris.Wrap(enc.Close(), "reference: flush yaml")
}

func merge(base, overlay *Tables) *Tables {
	if overlay.Corrections != nil {
		base.Corrections = overlay.Corrections
	}
	if overlay.Cities != nil {
		base.Cities = overlay.Cities
	}
	if overlay.Regions != nil {
		base.Regions = overlay.Regions
	}
	if overlay.Economic != nil {
		base.Economic = overlay.Economic
	}
	if overlay.Demographic != nil {
		base.Demographic = overlay.Demographic
	}
	if overlay.PrincipalCities != nil {
		base.PrincipalCities = overlay.PrincipalCities
	}
	if overlay.SecondaryCities != nil {
		base.SecondaryCities = overlay.SecondaryCities
	}
	if overlay.HighRisk != nil {
		base.HighRisk = overlay.HighRisk
	}
	if overlay.Climate != nil {
		base.Climate = overlay.Climate
	}
	if overlay.DefaultClimate != "" {
		base.DefaultClimate = overlay.DefaultClimate
	}
	if overlay.Placeholders != nil {
		base.Placeholders = overlay.Placeholders
	}
	if overlay.Descriptions != nil {
		base.Descriptions = overlay.Descriptions
	}
	if overlay.Constraints != nil {
		base.Constraints = overlay.Constraints
	}
	return base
}
