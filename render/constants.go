package render

import (
	"embed"
	"fmt"

	"github.com/magiconair/properties"
)

// ViewerConstants is the resource id of the bundled label set.
const ViewerConstants = "constants/SpdxViewerConstants.properties"

//go:embed constants/*.properties
var constantsFS embed.FS

// Constants maps rendering keys to human-readable labels.
type Constants struct {
	props *properties.Properties
}

// LoadConstants reads a bundled properties resource.
func LoadConstants(resourceID string) (*Constants, error) {
	data, err := constantsFS.ReadFile(resourceID)
	if err != nil {
		return nil, fmt.Errorf("reading constants %s: %w", resourceID, err)
	}
	props, err := properties.Load(data, properties.UTF8)
	if err != nil {
		return nil, fmt.Errorf("parsing constants %s: %w", resourceID, err)
	}
	return &Constants{props: props}, nil
}

// MergeFile overlays the labels of a properties file on top of c.
func (c *Constants) MergeFile(path string) error {
	props, err := properties.LoadFile(path, properties.UTF8)
	if err != nil {
		return fmt.Errorf("loading constants override %s: %w", path, err)
	}
	c.props.Merge(props)
	return nil
}

// Label returns the label for key, or an error when the key is not defined.
func (c *Constants) Label(key string) (string, error) {
	v, ok := c.props.Get(key)
	if !ok {
		return "", fmt.Errorf("missing rendering constant %s", key)
	}
	return v, nil
}

// Len returns the number of defined labels.
func (c *Constants) Len() int {
	return c.props.Len()
}
