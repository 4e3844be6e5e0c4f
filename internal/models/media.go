package models

import "github.com/samber/mo"

// MediaQuery is a normalized source URL plus the platform it was matched to
type MediaQuery struct {
	URL      string
	Platform Platform
}

// MediaMetadata describes a probed media item
type MediaMetadata struct {
	Title     string
	Thumbnail mo.Option[string]
	Duration  mo.Option[float64] // seconds, never negative
	Extractor string
}

// EncodingDescriptor is one way of obtaining the media from the extraction tool
type EncodingDescriptor struct {
	FormatID   string // passed verbatim back to the tool
	Ext        string
	VCodec     string // "none" when the tool says there is no video track
	ACodec     string // "none" when the tool says there is no audio track
	Filesize   mo.Option[int64]
	Resolution string // "<height>p" or "auto"
	Protocol   string
	Note       string
}

// HasVideo reports whether the encoding carries a video track
func (e EncodingDescriptor) HasVideo() bool {
	return e.VCodec != "" && e.VCodec != CodecNone
}

// HasAudio reports whether the encoding carries an audio track
func (e EncodingDescriptor) HasAudio() bool {
	return e.ACodec != "" && e.ACodec != CodecNone
}

// ProbeResult is the outcome of one successful probe: metadata plus the raw format list
type ProbeResult struct {
	Metadata MediaMetadata
	Formats  []EncodingDescriptor
}

// Preview is what the UI receives after a probe
type Preview struct {
	Query    MediaQuery
	Metadata MediaMetadata
	Formats  []EncodingDescriptor // shortlist, at most 3 entries
	Default  mo.Option[EncodingDescriptor]
}
