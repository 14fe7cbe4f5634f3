package orchestrator

import (
	"fmt"
	"strings"

	"lookgen-gateway/internal/jobs"
)

// PoseKeys are the poses the generator is prompted with.
var PoseKeys = []string{"front", "three_quarter", "side", "back"}

func ValidPoseKey(key string) bool {
	for _, k := range PoseKeys {
		if k == key {
			return true
		}
	}
	return false
}

func ModelPrompt(version string) string {
	return "Transform the person into a full-body fashion model photo.\n" +
		"Background: clean neutral studio (#f0f0f0).\n" +
		"Subject: neutral, professional model expression; preserve identity, unique features, and body type; standard relaxed standing pose.\n" +
		"Return ONLY the final image. PromptVersion: " + version
}

func GarmentPrompt(version, poseKey string) string {
	var b strings.Builder
	b.WriteString("You MUST completely REMOVE and REPLACE the current clothing with the provided garment.\n")
	b.WriteString("The first image is the model, the second image is the garment.\n")
	b.WriteString("Preserve the person's face, hair, body shape, and pose unchanged. Preserve the entire background perfectly.\n")
	b.WriteString("Realistically fit the new garment to the person (natural folds, shadows, and lighting; correct scale/alignment).\n")
	b.WriteString("Preserve visible garment defects (pilling, fading); do NOT beautify.\n")
	if poseKey != "" {
		fmt.Fprintf(&b, "Target pose: %s.\n", poseKey)
	}
	b.WriteString("Return ONLY the final image. PromptVersion: " + version)
	return b.String()
}

func PosePrompt(version, poseKey string) string {
	return fmt.Sprintf("Regenerate from pose: %s. Preserve person, current outfit, background & lighting. "+
		"Keep materials/defects identical. Output image only. PromptVersion: %s", poseKey, version)
}

// promptFor returns the prompt and the ordered image references for a job.
func promptFor(typ jobs.Type, in jobs.Input) (string, []string, error) {
	switch typ {
	case jobs.TypeModel:
		return ModelPrompt(in.PromptVersion), []string{in.SourceImageRef}, nil
	case jobs.TypeGarment:
		return GarmentPrompt(in.PromptVersion, in.PoseKey), []string{in.ModelImageRef, in.GarmentImageRef}, nil
	case jobs.TypePose:
		return PosePrompt(in.PromptVersion, in.PoseKey), []string{in.ImageRef}, nil
	default:
		return "", nil, fmt.Errorf("unknown job type %q", typ)
	}
}
