// Package materials stores the PDF a campaign attaches to every message.
//
// Uploads are checked by magic bytes, not by extension, and bounded in size.
// Stored files come back as *mailer.Attachment ready for a Sender.
//
//	store, err := materials.NewS3(cfg) // or materials.NewMemory(0)
//	info, err := store.Put(ctx, "brochure.pdf", data)
//	att, err := store.Get(ctx, info.Key)
//
// Keys have the form {prefix}/{ulid}.pdf. The original filename travels in
// object metadata and becomes the attachment name.
package materials
