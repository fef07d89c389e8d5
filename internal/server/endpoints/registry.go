package endpoints

import (
	"github.com/pvolkov/tome/internal/api"
)

// All returns all endpoint instances.
func All() []api.Endpoint {
	return []api.Endpoint{
		// Health endpoints
		&HealthEndpoint{},
		&ReadyEndpoint{},
		&StatusEndpoint{},

		// Case endpoints
		&CreateCaseEndpoint{},
		&ListCasesEndpoint{},
		&GetCaseEndpoint{},
		&DeleteCaseEndpoint{},

		// Volume endpoints
		&UploadVolumeEndpoint{},
		&ListVolumesEndpoint{},
		&GetVolumeEndpoint{},
		&DeleteVolumeEndpoint{},

		// Extraction endpoints
		&ExtractEndpoint{},
		&ExtractStreamEndpoint{},

		// Run history endpoints
		&ListRunsEndpoint{},
		&CurrentRunEndpoint{},
		&RunByVersionEndpoint{},
		&ListDocumentsEndpoint{},
	}
}
