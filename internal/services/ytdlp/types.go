package ytdlp

// InfoDocument is the subset of the `-J` output we consume
type InfoDocument struct {
	Title        string        `json:"title"`
	Thumbnail    *string       `json:"thumbnail"`
	Duration     *float64      `json:"duration"`
	Extractor    string        `json:"extractor"`
	ExtractorKey string        `json:"extractor_key"`
	Formats      []FormatEntry `json:"formats"`
}

// FormatEntry is one element of the formats array
type FormatEntry struct {
	FormatID       string   `json:"format_id"`
	Ext            string   `json:"ext"`
	VCodec         string   `json:"vcodec"`
	ACodec         string   `json:"acodec"`
	Height         *float64 `json:"height"`
	FormatNote     string   `json:"format_note"`
	Filesize       *float64 `json:"filesize"`
	FilesizeApprox *float64 `json:"filesize_approx"`
	Protocol       string   `json:"protocol"`
}
