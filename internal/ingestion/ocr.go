package ingestion

import (
	"context"
	"errors"
	"fmt"
	"strings"

	vision "cloud.google.com/go/vision/v2/apiv1"
	"cloud.google.com/go/vision/v2/apiv1/visionpb"
	"google.golang.org/api/option"
)

// maxOCRPages is the page limit of synchronous file annotation.
const maxOCRPages = 5

// VisionOCR implements OCR with Google Cloud Vision document text detection.
type VisionOCR struct {
	client *vision.ImageAnnotatorClient
}

// NewVisionOCR creates a Vision client. credentials may be a file path, an
// inline JSON key, or empty to use application default credentials.
func NewVisionOCR(ctx context.Context, credentials string) (*VisionOCR, error) {
	var opts []option.ClientOption
	credentials = strings.TrimSpace(credentials)
	switch {
	case strings.HasPrefix(credentials, "{"):
		opts = append(opts, option.WithCredentialsJSON([]byte(credentials)))
	case credentials != "":
		opts = append(opts, option.WithCredentialsFile(credentials))
	}
	client, err := vision.NewImageAnnotatorClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("vision client: %w", err)
	}
	return &VisionOCR{client: client}, nil
}

// Close releases the underlying connection.
func (v *VisionOCR) Close() error {
	return v.client.Close()
}

func (v *VisionOCR) ImageText(ctx context.Context, data []byte) (string, error) {
	resp, err := v.client.BatchAnnotateImages(ctx, &visionpb.BatchAnnotateImagesRequest{
		Requests: []*visionpb.AnnotateImageRequest{{
			Image:    &visionpb.Image{Content: data},
			Features: []*visionpb.Feature{{Type: visionpb.Feature_DOCUMENT_TEXT_DETECTION}},
		}},
	})
	if err != nil {
		return "", fmt.Errorf("vision BatchAnnotateImages: %w", err)
	}
	if len(resp.GetResponses()) == 0 {
		return "", nil
	}
	return imageResponseText(resp.GetResponses()[0])
}

func (v *VisionOCR) PDFText(ctx context.Context, data []byte) (string, error) {
	pages := make([]int32, maxOCRPages)
	for i := range pages {
		pages[i] = int32(i + 1)
	}
	resp, err := v.client.BatchAnnotateFiles(ctx, &visionpb.BatchAnnotateFilesRequest{
		Requests: []*visionpb.AnnotateFileRequest{{
			InputConfig: &visionpb.InputConfig{Content: data, MimeType: "application/pdf"},
			Features:    []*visionpb.Feature{{Type: visionpb.Feature_DOCUMENT_TEXT_DETECTION}},
			Pages:       pages,
		}},
	})
	if err != nil {
		return "", fmt.Errorf("vision BatchAnnotateFiles: %w", err)
	}
	if len(resp.GetResponses()) == 0 {
		return "", nil
	}
	file := resp.GetResponses()[0]
	if msg := file.GetError().GetMessage(); msg != "" {
		return "", errors.New("vision annotate error: " + msg)
	}
	var sb strings.Builder
	for _, page := range file.GetResponses() {
		text, err := imageResponseText(page)
		if err != nil {
			return "", err
		}
		sb.WriteString(text)
		sb.WriteString("\n")
	}
	return sb.String(), nil
}

func imageResponseText(r *visionpb.AnnotateImageResponse) (string, error) {
	if msg := r.GetError().GetMessage(); msg != "" {
		return "", errors.New("vision annotate error: " + msg)
	}
	return r.GetFullTextAnnotation().GetText(), nil
}
