// Package storage provides an abstraction layer for object storage services.
//
// It wraps the MinIO Go client behind the Client interface so profile photo
// uploads can run against AWS S3, a self-hosted MinIO instance, or the testify
// mock in core/storage/mocks.
//
// # Operations
//
//   - BucketExists / MakeBucket: verify or create the photo bucket (EnsureBucket).
//   - PutObject: upload a photo, overwriting the object with the same key.
//   - ListObjects / RemoveObject: find and drop stale avatars of an owner.
//
// Config.PublicURL turns an object key into the URL stored on the profile record.
//
// # Usage
//
//	client, err := storage.NewClient(cfg.Storage)
//	created, err := storage.EnsureBucket(ctx, client, cfg.Storage.Bucket, cfg.Storage.Region)
package storage
