package vision

// emotionPrompt is sent with every image to the vision models. The strict
// JSON contract keeps the response parseable; when a model ignores it the
// source package's keyword fallback still extracts a usable vector.
const emotionPrompt = `Analyze the emotion of the person in this image and respond strictly in the following JSON format:

{
  "emotions": {
    "angry": number between 0.0 and 1.0,
    "disgusted": number between 0.0 and 1.0,
    "fearful": number between 0.0 and 1.0,
    "happy": number between 0.0 and 1.0,
    "neutral": number between 0.0 and 1.0,
    "sad": number between 0.0 and 1.0,
    "surprised": number between 0.0 and 1.0
  },
  "dominant_emotion": "name of the dominant emotion (lowercase english)",
  "confidence": confidence between 0.0 and 1.0
}

Requirements:
1. All emotion probabilities must sum to 1.0
2. Return ONLY the JSON, no other text
3. Emotion names must be lowercase english
4. Look closely at facial expression, eyes and mouth corners
`
