package archive

import (
	"bytes"
	"io/ioutil"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
)

// ChunkBlobStore persists the compressed chunk payload archive_manager.rs's
// ArchiveChunk.compressed_data carries, keyed by chunk ID. The ledger
// (NodeRecord/ChunkAssignment) tracks who holds which chunk; this store
// holds the bytes themselves.
type ChunkBlobStore struct {
	s3     *s3.S3
	bucket string
}

func NewChunkBlobStore(bucket, region string) (*ChunkBlobStore, error) {
	sess, err := session.NewSession(&aws.Config{Region: aws.String(region)})
	if err != nil {
		return nil, err
	}
	return &ChunkBlobStore{s3: s3.New(sess), bucket: bucket}, nil
}

func (c *ChunkBlobStore) key(chunkID string) string {
	return "chunks/" + chunkID
}

func (c *ChunkBlobStore) Put(chunkID string, data []byte) error {
	_, err := c.s3.PutObject(&s3.PutObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(c.key(chunkID)),
		Body:   bytes.NewReader(data),
	})
	return err
}

func (c *ChunkBlobStore) Get(chunkID string) ([]byte, error) {
	out, err := c.s3.GetObject(&s3.GetObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(c.key(chunkID)),
	})
	if err != nil {
		return nil, err
	}
	defer out.Body.Close()
	return ioutil.ReadAll(out.Body)
}
