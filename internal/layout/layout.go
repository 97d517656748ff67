package layout

import (
	"math"
	"path/filepath"
	"strings"

	"github.com/marcus/galaxy/internal/fsmodel"
)

const goldenRatio = 1.618033988749

// Position places a node in galaxy space: the root at the origin,
// directories on a depth-scaled spiral, files clustered around and below
// their parent directory.
func Position(m *fsmodel.Model, idx int) Vec3 {
	node, ok := m.Node(idx)
	if !ok {
		return Vec3{}
	}
	if node.Depth == 0 {
		return Vec3{}
	}

	indexInParent := 0
	if node.Parent != fsmodel.NoParent {
		if parent, ok := m.Node(node.Parent); ok {
			for i, c := range parent.Children {
				if c == idx {
					indexInParent = i
					break
				}
			}
		}
	}

	if node.IsDir {
		angle := float64(idx)*goldenRatio*2*math.Pi + float64(indexInParent)*0.5
		radius := float64(node.Depth)*8 + float64(indexInParent)*1.5
		y := float64(node.Depth)*2 - 5
		return Vec3{
			X: radius * math.Cos(angle),
			Y: y,
			Z: radius * math.Sin(angle),
		}
	}

	if node.Parent == fsmodel.NoParent {
		return Vec3{Y: -5}
	}

	parentPos := Position(m, node.Parent)
	angle := float64(indexInParent) * goldenRatio * 2 * math.Pi
	const clusterRadius = 2.0
	return Vec3{
		X: parentPos.X + clusterRadius*math.Cos(angle),
		Y: parentPos.Y - 1.5 - math.Min(float64(indexInParent)*0.2, 2),
		Z: parentPos.Z + clusterRadius*math.Sin(angle),
	}
}

// StarSize returns the render size for a node. Directories grow with
// their child count; files stay small.
func StarSize(node *fsmodel.Node) float64 {
	if node.IsDir {
		return 0.8 + math.Min(float64(len(node.Children))*0.05, 1.2)
	}
	return 0.3
}

// StarColor returns the base color for a node. Directories are a warm
// whitish yellow; files are colored by extension.
func StarColor(node *fsmodel.Node) RGB {
	if node.IsDir {
		return RGB{1.0, 0.95, 0.7}
	}

	ext := strings.TrimPrefix(filepath.Ext(node.Name), ".")
	switch ext {
	case "rs":
		return RGB{1.0, 0.75, 0.6}
	case "toml", "yaml", "yml", "json":
		return RGB{1.0, 0.95, 0.6}
	case "md", "txt":
		return RGB{0.9, 0.8, 1.0}
	case "js", "ts":
		return RGB{1.0, 0.98, 0.7}
	case "py":
		return RGB{0.7, 0.85, 1.0}
	case "html", "css":
		return RGB{1.0, 0.7, 0.85}
	case "java", "cpp", "c":
		return RGB{0.85, 0.75, 1.0}
	case "go":
		return RGB{0.7, 0.9, 1.0}
	default:
		return RGB{0.9, 0.8, 0.95}
	}
}
