package export

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/h2non/filetype"
	"go.uber.org/zap"

	"github.com/Faultbox/pcexport/pkg/scene"
)

// sniffLen is how many bytes are read to guess an image type.
const sniffLen = 262

// textureCopier copies texture images into the image directory, once per
// output file name. One copier serves a whole export run, so a name taken by
// one document is never overwritten by another.
type textureCopier struct {
	imageDir    string
	materialDir string

	written map[string]string // lower-cased output name -> source
	files   []string
}

func newTextureCopier(p Paths) *textureCopier {
	return &textureCopier{
		imageDir:    p.Image,
		materialDir: p.Material,
		written:     make(map[string]string),
	}
}

// apply copies the images of every enabled slot and records them on the
// material descriptor. UV layer indices come from uv.
func (c *textureCopier) apply(desc map[string]any, m *scene.Material, uv *UVRegistry, log *zap.Logger) error {
	for _, slot := range m.Textures {
		if slot == nil || slot.Image == nil || !slot.Enabled {
			continue
		}
		if !slot.Diffuse && !slot.Emission && !slot.Specular && !slot.Alpha && !slot.Normal {
			continue
		}
		rel, err := c.copy(slot, log)
		if err != nil {
			return fmt.Errorf("material %q: %w", m.Name, err)
		}
		applySlot(desc, slot, rel, uvIndex(m, slot, uv, log))
	}
	return nil
}

func applySlot(desc map[string]any, slot *scene.TextureSlot, rel string, uv int) {
	if slot.Diffuse {
		desc["diffuseMap"] = rel
		desc["diffuseMapUv"] = uv
	}
	if slot.Emission {
		desc["emissiveMap"] = rel
		desc["emissiveMapUv"] = uv
	}
	if slot.Specular {
		desc["specularMap"] = rel
		desc["specularMapUv"] = uv
	}
	if slot.Alpha {
		if slot.RGBToIntensity {
			desc["opacityMapChannel"] = "rgb"
		}
		desc["opacityMap"] = rel
		desc["opacityMapUv"] = uv
	}
	if slot.Normal {
		desc["normalMap"] = rel
		desc["normalMapUv"] = uv
		desc["bumpMapFactor"] = slot.NormalFactor
	}
}

func uvIndex(m *scene.Material, slot *scene.TextureSlot, uv *UVRegistry, log *zap.Logger) int {
	if slot.UVLayer == "" {
		log.Warn("unspecified UV layer, using layer 0",
			zap.String("material", m.Name), zap.String("texture", slot.Name))
		return 0
	}
	idx, ok := uv.Index(slot.UVLayer)
	if !ok {
		log.Warn("unknown UV layer, using layer 0",
			zap.String("material", m.Name), zap.String("texture", slot.Name),
			zap.String("layer", slot.UVLayer))
		return 0
	}
	return idx
}

// copy writes the slot image and returns its path relative to the material
// directory.
func (c *textureCopier) copy(slot *scene.TextureSlot, log *zap.Logger) (string, error) {
	img := slot.Image
	ext, err := imageExt(img)
	if err != nil {
		return "", fmt.Errorf("texture %q: %w", slot.Name, err)
	}
	name := safeName(slot.Name) + "." + ext
	dst := filepath.Join(c.imageDir, name)

	src := img.Path
	if src == "" {
		src = fmt.Sprintf("embedded:%p", img)
	}
	key := strings.ToLower(name)
	if prev, ok := c.written[key]; !ok {
		if err := writeImage(img, dst); err != nil {
			return "", fmt.Errorf("texture %q: %w", slot.Name, err)
		}
		c.written[key] = src
		c.files = append(c.files, dst)
		log.Debug("copied texture", zap.String("texture", slot.Name), zap.String("path", dst))
	} else if prev != src {
		log.Warn("texture name reused for a different image, keeping the first",
			zap.String("texture", slot.Name), zap.String("kept", prev), zap.String("skipped", src))
	}

	rel, err := filepath.Rel(c.materialDir, dst)
	if err != nil {
		rel = filepath.Join(c.imageDir, name)
	}
	return filepath.ToSlash(rel), nil
}

// imageExt returns the output extension for an image: the extension of its
// path when there is one, otherwise one sniffed from the bytes.
func imageExt(img *scene.Image) (string, error) {
	if ext := strings.TrimPrefix(filepath.Ext(img.Path), "."); ext != "" {
		return strings.ToLower(ext), nil
	}
	if img.Data != nil {
		return sniffExt(img.Data), nil
	}
	head, err := readHead(img.Path)
	if err != nil {
		return "", err
	}
	return sniffExt(head), nil
}

func sniffExt(buf []byte) string {
	if len(buf) > sniffLen {
		buf = buf[:sniffLen]
	}
	kind, err := filetype.Match(buf)
	if err != nil || kind == filetype.Unknown {
		return "bin"
	}
	return kind.Extension
}

func readHead(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, missing(path, err)
	}
	defer f.Close()
	buf := make([]byte, sniffLen)
	n, err := io.ReadFull(f, buf)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, err
	}
	return buf[:n], nil
}

func writeImage(img *scene.Image, dst string) error {
	if img.Data != nil {
		return os.WriteFile(dst, img.Data, 0o644)
	}

	in, err := os.Open(img.Path)
	if err != nil {
		return missing(img.Path, err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

func missing(path string, err error) error {
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %s", ErrMissingTexture, path)
	}
	return err
}
