package parttree

import "github.com/appneural-ajith/ai-email-assistant/internal/model"

// CollectAttachments returns metadata for every immediate child of the root
// that carries a filename. Deeper parts are not inspected. Order follows the
// document and duplicate filenames are kept. MIMEType is the bare media
// type without parameters. MessageID is left empty.
func CollectAttachments(t *Tree) []model.Attachment {
	if t == nil || t.Len() == 0 {
		return nil
	}

	var attachments []model.Attachment
	for _, idx := range t.Children(Root) {
		p := t.Part(idx)
		if p.Filename == "" {
			continue
		}
		size := p.Size
		if size < 0 {
			size = 0
		}
		attachments = append(attachments, model.Attachment{
			Filename: p.Filename,
			MIMEType: p.MediaType(),
			Size:     size,
		})
	}
	return attachments
}
