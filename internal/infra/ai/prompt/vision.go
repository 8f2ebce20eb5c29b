package prompt

// Analysis is the fixed instruction prompt sent with every image. Its field
// names are a protocol contract with analyses.Normalize, which is keyed to
// exactly these keys; do not rename them.
const Analysis = `Analyze this image and respond with a valid JSON object containing exactly these keys (no markdown, no code blocks, just raw JSON):
{
  "description": "A detailed scene description of the image",
  "objects": [{"name": "object name", "confidence": 0.95}, ...],
  "text": ["any text found in the image (OCR)", ...],
  "dominant_colors": ["#hexcolor", ...],
  "category": "image category (e.g. nature, portrait, document, product, etc.)"
}

Rules:
- description: 1-3 sentences describing the scene and content
- objects: list all detectable objects with confidence as decimal 0-1
- text: list any visible text (OCR). Empty array if none found
- dominant_colors: up to 5 dominant colors as hex codes (e.g. "#3B82F6")
- category: a single short label for the image type`
