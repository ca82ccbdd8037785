package classifier

const (
	commentPrompt = `You review reflection comments that students write after watching a short class video.
Mark the comment invalid when it is gibberish, profanity, or unrelated to studying.
Grade a valid comment by depth: 1 = minimal, 2 = adequate, 3 = thoughtful and specific.
Answer with JSON only, no markdown: {"isValid": boolean, "score": 1|2|3, "reason": "short reason in Korean"}

Comment:
%s`

	imagePrompt = `You verify photos that students upload as proof for a daily habit challenge titled "%s".
Decide whether the photo plausibly shows the activity being done today.
Answer with JSON only, no markdown: {"isValid": boolean, "reason": "short reason in Korean"}`

	thumbnailPrompt = `Create a flat vector art style illustration for an educational class thumbnail about: "%s".
Use bright, friendly colors suitable for students. Minimalist, high quality, no text inside the image.`

	praisePrompt = `You are an encouraging classroom assistant.
Write a very short, enthusiastic, one-sentence praise message (under 15 words) for a student named "%s".
They just received %d points for "%s".
Do not include quotes.`
)
