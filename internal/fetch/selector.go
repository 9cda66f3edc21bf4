package fetch

// Format selectors
const (
	// SelectorSmallestWithAudio picks the lowest progressive rendition
	SelectorSmallestWithAudio = "worst[acodec!=none]"
	// SelectorBestAudio is used when the audio will be transcoded
	SelectorBestAudio = "bestaudio/best"
	// SelectorCompatibleAudio avoids transcoding when no ffmpeg is present
	SelectorCompatibleAudio = "bestaudio[ext=m4a]/bestaudio"
)

// AudioSelector returns the audio-only selector for the current capability set
func AudioSelector(canTranscode bool) string {
	if canTranscode {
		return SelectorBestAudio
	}
	return SelectorCompatibleAudio
}
