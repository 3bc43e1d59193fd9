package endpoints

import (
	"github.com/bookvision/bookvision/internal/api"
)

// All returns every endpoint the server exposes.
func All() []api.Endpoint {
	return []api.Endpoint{
		&HealthEndpoint{},
		&StatusEndpoint{},
		&UploadEndpoint{},
		&StoryEndpoint{},
		&QAEndpoint{},
		&SuggestedQuestionsEndpoint{},
		&EntityImageEndpoint{},
		&GenerateAudioEndpoint{},
		&GenerateVisualsEndpoint{},
		&GeneratePodcastEndpoint{},
		&JobGetEndpoint{},
		&LibraryListEndpoint{},
		&LibraryLoadEndpoint{},
		&LibraryDeleteEndpoint{},
		&AssetsEndpoint{},
	}
}
