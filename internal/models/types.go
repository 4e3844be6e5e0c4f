package models

// Platform identifies the social network a URL belongs to
type Platform string

const (
	PlatformTikTok    Platform = "tiktok"
	PlatformYouTube   Platform = "youtube"
	PlatformFacebook  Platform = "facebook"
	PlatformInstagram Platform = "instagram"
	PlatformOther     Platform = "other"
)

// Platforms lists every known platform, in display order
var Platforms = []Platform{
	PlatformTikTok,
	PlatformYouTube,
	PlatformFacebook,
	PlatformInstagram,
	PlatformOther,
}

// StreamKind distinguishes the two download flavours
type StreamKind string

const (
	StreamVideo StreamKind = "video"
	StreamAudio StreamKind = "audio"
)

// ResolutionAuto is the resolution label used when the height is unknown
const ResolutionAuto = "auto"

// CodecNone is the codec tag the extraction tool reports for a missing track
const CodecNone = "none"
