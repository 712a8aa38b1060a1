package voice

// Default Azure voice. Full list:
// https://learn.microsoft.com/en-us/azure/ai-services/speech-service/language-support
const DefaultVoice = "en-US-AvaNeural"

// DefaultGoogleVoice is the Google Cloud TTS voice used for prompts.
const DefaultGoogleVoice = "en-US-Standard-C"

// Audio format requested from Azure and expected by the player.
const DefaultAudioFormat = "riff-24khz-16bit-mono-pcm"

// Audio parameters matching the default format. Both backends are asked
// for this exact layout so the player needs a single oto context.
const (
	SampleRate   = 24000
	ChannelCount = 1
	BitDepth     = 16
)

// Env var names for backend credentials.
const (
	EnvAzureSpeechKey    = "AZURE_SPEECH_KEY"
	EnvAzureSpeechRegion = "AZURE_SPEECH_REGION"
	EnvGoogleTTSToken    = "GOOGLE_TTS_ACCESS_TOKEN"
	EnvGoogleProject     = "GOOGLE_CLOUD_PROJECT"
)

// DefaultAssetExt is the file extension given to synthesized assets.
const DefaultAssetExt = ".wav"
