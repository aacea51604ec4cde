package graphics

type FramebufferDesc struct {
	ColorAttachment Texture
	DepthAttachment Texture
	Label           string
}

func (d *FramebufferDesc) Validate() error {
	if d.ColorAttachment == nil && d.DepthAttachment == nil {
		return NewResult(ArgumentNull, "framebuffer requires at least one attachment")
	}
	if d.ColorAttachment != nil && d.DepthAttachment != nil {
		c := d.ColorAttachment.Dimensions()
		z := d.DepthAttachment.Dimensions()
		if c.Width != z.Width || c.Height != z.Height {
			return NewResult(ArgumentInvalid, "attachment dimensions mismatch: color %dx%d, depth %dx%d", c.Width, c.Height, z.Width, z.Height)
		}
	}
	return nil
}

// Framebuffer groups render targets for a render encoder. It references but
// does not own its attachments.
type Framebuffer interface {
	ColorAttachment() Texture
	DepthAttachment() Texture
	Label() string
}
