package sandbox

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"

	containerd "github.com/containerd/containerd/v2/client"
	"github.com/containerd/containerd/v2/core/images"
	"github.com/containerd/errdefs"
	"github.com/containerd/platforms"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
)

const (

	// Snapshotter used for build container filesystems. fuse-overlayfs
	// provides overlay semantics without requiring root privileges.
	snapshotter = "fuse-overlayfs"

	// OCI runtime shim for running build containers.
	ociRuntime = "io.containerd.runc.v2"
)

// Manages the containerd client used to run toolchain builds.
type Sandbox struct {
	client *containerd.Client
}

// Creates a sandbox connected to the containerd socket at the given address.
//
// The namespace scopes all containerd operations. The sandbox must be
// closed when no longer needed.
func New(address, namespace string) (*Sandbox, error) {
	client, err := containerd.New(address, containerd.WithDefaultNamespace(namespace))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSandbox, err)
	}
	return &Sandbox{client: client}, nil
}

// Closes the containerd client connection.
func (s *Sandbox) Close() error {
	return s.client.Close()
}

// Imports the toolchain image archive, unpacks it for the target platform,
// and starts a build container.
//
// The archive is imported into the content store under a deterministic tag
// derived from the path, the layers for the target platform are unpacked
// into the snapshotter, and a container with a long-running task is started
// so that subsequent Exec calls have a running process to attach to. Any
// stale container with the same ID from a superseded build is removed
// first.
func (s *Sandbox) Start(ctx context.Context, archive, id, platform string) (*BuildContainer, error) {
	tag := imageTag(archive)

	source, err := s.importArchive(ctx, archive)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSandbox, err)
	}

	if err := s.tagImage(ctx, source, tag); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSandbox, err)
	}

	image, err := s.resolveImage(ctx, tag, platform)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSandbox, err)
	}

	if err := image.Unpack(ctx, snapshotter); err != nil {
		return nil, fmt.Errorf("%w: unpack %s: %w", ErrSandbox, platform, err)
	}

	c := &BuildContainer{
		client:   s.client,
		id:       id,
		platform: platform,
	}
	c.remove(ctx)

	if err := c.start(ctx, image); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSandbox, err)
	}

	return c, nil
}

// Imports an OCI archive into the content store.
//
// The archive must contain exactly one image; a multi-platform archive has
// a single index entry with per-platform manifests, and platform selection
// happens at resolve time.
func (s *Sandbox) importArchive(ctx context.Context, path string) (images.Image, error) {
	fh, err := os.Open(path)
	if err != nil {
		return images.Image{}, err
	}
	defer fh.Close()

	imported, err := s.client.Import(ctx, fh)
	if err != nil {
		return images.Image{}, err
	}

	if len(imported) == 0 {
		return images.Image{}, ErrEmptyArchive
	} else if len(imported) > 1 {
		return images.Image{}, ErrMultipleImages
	}

	if !supportedImageType(imported[0].Target.MediaType) {
		return images.Image{}, fmt.Errorf("%w: %s", ErrImageFormat, imported[0].Target.MediaType)
	}

	return imported[0], nil
}

// Reports whether the imported archive's root descriptor is a usable image.
//
// Multi-platform toolchain archives carry an OCI index (or Docker manifest
// list); single-platform ones carry a manifest. Anything else cannot be
// unpacked into a build container.
func supportedImageType(mediaType string) bool {
	switch mediaType {
	case ocispec.MediaTypeImageIndex, ocispec.MediaTypeImageManifest,
		images.MediaTypeDockerSchema2ManifestList, images.MediaTypeDockerSchema2Manifest:
		return true
	}
	return false
}

// Tags an imported image under a deterministic name.
//
// Updates the tag if it already exists; removes the source record when its
// name differs from the tag to avoid duplicates.
func (s *Sandbox) tagImage(ctx context.Context, source images.Image, tag string) error {
	is := s.client.ImageService()

	img := images.Image{
		Name:   tag,
		Target: source.Target,
	}

	if _, err := is.Create(ctx, img); err != nil {
		if !errdefs.IsAlreadyExists(err) {
			return err
		}
		if _, err := is.Update(ctx, img, "target"); err != nil {
			return err
		}
	}

	if source.Name != tag {
		_ = is.Delete(ctx, source.Name)
	}

	return nil
}

// Looks up a tagged image and selects the manifest for the given platform.
func (s *Sandbox) resolveImage(ctx context.Context, tag, platform string) (containerd.Image, error) {
	p, err := platforms.Parse(platform)
	if err != nil {
		return nil, err
	}

	img, err := s.client.ImageService().Get(ctx, tag)
	if err != nil {
		return nil, err
	}

	return containerd.NewImageWithPlatform(s.client, img, platforms.Only(p)), nil
}

// Produces a containerd image tag from an archive path.
//
// The path is hashed so the tag is always a valid OCI reference regardless
// of which characters the path contains.
func imageTag(path string) string {
	h := sha256.Sum256([]byte(path))
	return fmt.Sprintf("toolchain/%s:latest", hex.EncodeToString(h[:]))
}
