package ytdlp

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/amaumene/clipgrab/internal/models"
	"github.com/amaumene/clipgrab/internal/utils"
	"github.com/samber/lo"
	"github.com/samber/mo"
	"github.com/xeipuuv/gojsonschema"
)

// ErrMalformedOutput is returned when the tool exits cleanly but prints something
// that is not a usable info document
var ErrMalformedOutput = errors.New("malformed extractor output")

const infoSchemaJSON = `{
  "type": "object",
  "required": ["formats"],
  "properties": {
    "title": {"type": ["string", "null"]},
    "thumbnail": {"type": ["string", "null"]},
    "duration": {"type": ["number", "null"]},
    "extractor": {"type": ["string", "null"]},
    "extractor_key": {"type": ["string", "null"]},
    "formats": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["format_id"],
        "properties": {
          "format_id": {"type": "string"},
          "ext": {"type": ["string", "null"]},
          "vcodec": {"type": ["string", "null"]},
          "acodec": {"type": ["string", "null"]},
          "height": {"type": ["number", "null"]},
          "format_note": {"type": ["string", "null"]},
          "filesize": {"type": ["number", "null"]},
          "filesize_approx": {"type": ["number", "null"]},
          "protocol": {"type": ["string", "null"]}
        }
      }
    }
  }
}`

var infoSchema = mustSchema(infoSchemaJSON)

func mustSchema(src string) *gojsonschema.Schema {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(src))
	if err != nil {
		panic(fmt.Sprintf("invalid info schema: %v", err))
	}
	return schema
}

// ParseInfo validates and decodes a `-J` document
func ParseInfo(data []byte) (*models.ProbeResult, error) {
	result, err := infoSchema.Validate(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedOutput, err)
	}
	if !result.Valid() {
		msgs := lo.Map(result.Errors(), func(e gojsonschema.ResultError, _ int) string {
			return e.String()
		})
		return nil, fmt.Errorf("%w: %s", ErrMalformedOutput, strings.Join(msgs, "; "))
	}

	var doc InfoDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedOutput, err)
	}

	return doc.toProbeResult(), nil
}

func (d *InfoDocument) toProbeResult() *models.ProbeResult {
	meta := models.MediaMetadata{
		Title:     d.Title,
		Extractor: d.Extractor,
	}
	if meta.Extractor == "" {
		meta.Extractor = d.ExtractorKey
	}
	if d.Thumbnail != nil && *d.Thumbnail != "" {
		meta.Thumbnail = mo.Some(*d.Thumbnail)
	}
	if d.Duration != nil && *d.Duration >= 0 {
		meta.Duration = mo.Some(*d.Duration)
	}

	formats := lo.Map(d.Formats, func(f FormatEntry, _ int) models.EncodingDescriptor {
		return f.toDescriptor()
	})

	return &models.ProbeResult{Metadata: meta, Formats: formats}
}

func (f FormatEntry) toDescriptor() models.EncodingDescriptor {
	height := 0
	if f.Height != nil && *f.Height > 0 {
		height = int(*f.Height)
	}

	desc := models.EncodingDescriptor{
		FormatID:   f.FormatID,
		Ext:        strings.ToLower(f.Ext),
		VCodec:     f.VCodec,
		ACodec:     f.ACodec,
		Resolution: utils.ResolutionLabel(height, f.FormatNote),
		Protocol:   f.Protocol,
		Note:       f.FormatNote,
	}

	// Exact size first, then the estimate
	for _, size := range []*float64{f.Filesize, f.FilesizeApprox} {
		if size != nil && *size > 0 {
			desc.Filesize = mo.Some(int64(*size))
			break
		}
	}

	return desc
}
