package extractor

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"

	"docrewriter/internal/models"
	"docrewriter/pkg/logger"
)

var (
	blipRe     = regexp.MustCompile(`<a:blip\s[^>]*r:(?:embed|link)="([^"]+)"`)
	vmlImageRe = regexp.MustCompile(`<v:imagedata\s[^>]*r:id="([^"]+)"`)
	extentRe   = regexp.MustCompile(`<wp:extent\s+cx="(\d+)"\s+cy="(\d+)"`)
)

// imageContentTypes 按扩展名映射内容类型
var imageContentTypes = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
	".bmp":  "image/bmp",
	".tiff": "image/tiff",
	".emf":  "image/x-emf",
	".wmf":  "image/x-wmf",
}

type imageRel struct {
	ID     string
	Target string
}

// parseImageRels 解析 word/_rels/document.xml.rels，只保留图片关系。
func parseImageRels(data []byte) (map[string]imageRel, error) {
	rels := make(map[string]imageRel)
	if len(data) == 0 {
		return rels, nil
	}

	var parsed struct {
		XMLName       xml.Name `xml:"Relationships"`
		Relationships []struct {
			ID     string `xml:"Id,attr"`
			Type   string `xml:"Type,attr"`
			Target string `xml:"Target,attr"`
		} `xml:"Relationship"`
	}
	if err := xml.Unmarshal(data, &parsed); err != nil {
		return nil, err
	}

	for _, rel := range parsed.Relationships {
		if strings.Contains(rel.Type, "image") {
			rels[rel.ID] = imageRel{ID: rel.ID, Target: rel.Target}
		}
	}
	return rels, nil
}

// extractImages 找出段落引用的所有图片并落盘。
// 先按 DrawingML（Word 2010+）找 a:blip，找不到再退回 VML（Word 2007）。
func (e *Extractor) extractImages(raw []byte, rels map[string]imageRel, media map[string]*zip.File) []*models.ImageInfo {
	var out []*models.ImageInfo
	seen := make(map[string]bool)

	placement := "inline"
	if bytes.Contains(raw, []byte("<wp:anchor")) {
		placement = "anchor"
	}
	var widthEMU, heightEMU string
	if m := extentRe.FindSubmatch(raw); m != nil {
		widthEMU, heightEMU = string(m[1]), string(m[2])
	}

	for _, m := range blipRe.FindAllSubmatch(raw, -1) {
		rid := string(m[1])
		if seen[rid] {
			continue
		}
		seen[rid] = true
		if info := e.saveImage(rid, rels, media, placement); info != nil {
			info.WidthEMU = widthEMU
			info.HeightEMU = heightEMU
			out = append(out, info)
		}
	}

	if len(out) > 0 {
		return out
	}

	for _, m := range vmlImageRe.FindAllSubmatch(raw, -1) {
		rid := string(m[1])
		if seen[rid] {
			continue
		}
		seen[rid] = true
		if info := e.saveImage(rid, rels, media, "shape"); info != nil {
			out = append(out, info)
		}
	}
	return out
}

func (e *Extractor) saveImage(rid string, rels map[string]imageRel, media map[string]*zip.File, placement string) *models.ImageInfo {
	rel, ok := rels[rid]
	if !ok {
		e.logger.Warn("image relationship not found", logger.String("rid", rid))
		return nil
	}

	target := "word/" + strings.TrimPrefix(rel.Target, "/")
	f, ok := media[target]
	if !ok {
		e.logger.Warn("media part not found",
			logger.String("rid", rid),
			logger.String("target", target),
		)
		return nil
	}

	data, err := readZipFile(f)
	if err != nil {
		e.logger.Error("read media part", logger.String("target", target), logger.Error(err))
		return nil
	}

	ext := strings.ToLower(filepath.Ext(rel.Target))
	contentType, ok := imageContentTypes[ext]
	if !ok {
		contentType = "image/png"
		ext = ".png"
	}

	if err := os.MkdirAll(e.imagesDir, 0755); err != nil {
		e.logger.Error("create images dir", logger.Error(err))
		return nil
	}

	filename := "image_" + uuid.New().String()[:8] + ext
	path := filepath.Join(e.imagesDir, filename)
	if err := os.WriteFile(path, data, 0644); err != nil {
		e.logger.Error("write image", logger.String("path", path), logger.Error(err))
		return nil
	}

	path, contentType = e.validateImage(path, contentType)

	e.logger.Info("image saved",
		logger.String("filename", filepath.Base(path)),
		logger.Int("size", len(data)),
		logger.String("contentType", contentType),
	)
	return &models.ImageInfo{
		Path:        path,
		Filename:    filepath.Base(path),
		ContentType: contentType,
		Size:        int64(len(data)),
		Placement:   placement,
	}
}

// validateImage 校验图片能否解码，bmp/tiff 一类重编码为 PNG 提高兼容性。
// EMF/WMF 等矢量格式无法解码，原样保留。
func (e *Extractor) validateImage(path, contentType string) (string, string) {
	switch contentType {
	case "image/x-emf", "image/x-wmf":
		return path, contentType
	}

	img, err := imaging.Open(path)
	if err != nil {
		e.logger.Warn("image validation failed",
			logger.String("path", path),
			logger.Error(err),
		)
		return path, contentType
	}

	if contentType == "image/bmp" || contentType == "image/tiff" {
		fixed := strings.TrimSuffix(path, filepath.Ext(path)) + ".png"
		if err := imaging.Save(img, fixed); err != nil {
			e.logger.Warn("image re-encode failed", logger.String("path", path), logger.Error(err))
			return path, contentType
		}
		os.Remove(path)
		e.logger.Info("image re-encoded to png", logger.String("path", fixed))
		return fixed, "image/png"
	}
	return path, contentType
}
