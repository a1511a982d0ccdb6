package stream

import "testing"

func TestKindString(t *testing.T) {
	cases := map[Kind]string{
		Video:      "video",
		Audio:      "audio",
		Subtitle:   "subtitle",
		Attachment: "attachment",
	}
	for k, want := range cases {
		if got := k.String(); got != want {
			t.Errorf("Kind(%d).String() = %q, want %q", k, got, want)
		}
	}
}

func TestTaggedMetaStaysScopedToKind(t *testing.T) {
	audio := Stream{Kind: Audio, AudioMeta: &AudioMeta{Channels: 6, SampleRate: 48000}}
	if audio.VideoMeta != nil {
		t.Errorf("an audio stream should never carry VideoMeta")
	}
	video := Stream{Kind: Video, VideoMeta: &VideoMeta{Width: 1920, Height: 1080}}
	if video.AudioMeta != nil {
		t.Errorf("a video stream should never carry AudioMeta")
	}
}
