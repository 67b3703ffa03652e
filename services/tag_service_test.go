package services

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateTag_TreeAndUniqueness(t *testing.T) {
	env := newTestEnv(t)

	root, err := env.tags.CreateTag(env.db, "projects", nil)
	require.NoError(t, err)
	assert.Nil(t, root.ParentID)

	child, err := env.tags.CreateTag(env.db, "active", &root.ID)
	require.NoError(t, err)
	require.NotNil(t, child.ParentID)
	assert.Equal(t, root.ID, *child.ParentID)

	// duplicate name under the same parent is rejected
	_, err = env.tags.CreateTag(env.db, "active", &root.ID)
	assert.ErrorIs(t, err, ErrResourceExists)

	// the same name under a different parent is fine
	_, err = env.tags.CreateTag(env.db, "active", nil)
	assert.NoError(t, err)

	missing := uuid.New()
	_, err = env.tags.CreateTag(env.db, "orphan", &missing)
	assert.ErrorIs(t, err, ErrTagNotFound)

	_, err = env.tags.CreateTag(env.db, "", nil)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestRenameTag_SiblingCollision(t *testing.T) {
	env := newTestEnv(t)
	a, err := env.tags.CreateTag(env.db, "alpha", nil)
	require.NoError(t, err)
	_, err = env.tags.CreateTag(env.db, "beta", nil)
	require.NoError(t, err)

	_, err = env.tags.RenameTag(env.db, a.ID.String(), "beta")
	assert.ErrorIs(t, err, ErrResourceExists)

	renamed, err := env.tags.RenameTag(env.db, a.ID.String(), "gamma")
	require.NoError(t, err)
	assert.Equal(t, "gamma", renamed.Name)
}

func TestDeleteTag_CascadesSubtree(t *testing.T) {
	env := newTestEnv(t)
	root, err := env.tags.CreateTag(env.db, "projects", nil)
	require.NoError(t, err)
	child, err := env.tags.CreateTag(env.db, "active", &root.ID)
	require.NoError(t, err)
	grandchild, err := env.tags.CreateTag(env.db, "urgent", &child.ID)
	require.NoError(t, err)
	keep, err := env.tags.CreateTag(env.db, "personal", nil)
	require.NoError(t, err)

	note := env.createNote(t, "Tagged", "", nil)
	require.NoError(t, env.tags.TagNote(env.db, note.ID.String(), grandchild.ID.String()))
	require.NoError(t, env.tags.TagNote(env.db, note.ID.String(), keep.ID.String()))

	require.NoError(t, env.tags.DeleteTag(env.db, root.ID.String()))

	for _, id := range []uuid.UUID{root.ID, child.ID, grandchild.ID} {
		_, err := env.tags.GetTagById(env.db, id.String())
		assert.ErrorIs(t, err, ErrTagNotFound)
	}

	// join rows for the deleted subtree are gone, the unrelated tag stays
	remaining, err := env.tags.GetTagsByNote(env.db, note.ID.String())
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(t, keep.ID, remaining[0].ID)
}

func TestTagNote_Idempotent(t *testing.T) {
	env := newTestEnv(t)
	note := env.createNote(t, "N", "", nil)
	tag, err := env.tags.CreateTag(env.db, "twice", nil)
	require.NoError(t, err)

	require.NoError(t, env.tags.TagNote(env.db, note.ID.String(), tag.ID.String()))
	require.NoError(t, env.tags.TagNote(env.db, note.ID.String(), tag.ID.String()))

	tags, err := env.tags.GetTagsByNote(env.db, note.ID.String())
	require.NoError(t, err)
	assert.Len(t, tags, 1)
}

func TestTagNote_MissingEntities(t *testing.T) {
	env := newTestEnv(t)
	note := env.createNote(t, "N", "", nil)
	tag, err := env.tags.CreateTag(env.db, "t", nil)
	require.NoError(t, err)

	err = env.tags.TagNote(env.db, uuid.NewString(), tag.ID.String())
	assert.ErrorIs(t, err, ErrNoteNotFound)

	err = env.tags.TagNote(env.db, note.ID.String(), uuid.NewString())
	assert.ErrorIs(t, err, ErrTagNotFound)

	err = env.tags.TagNote(env.db, "not-a-uuid", tag.ID.String())
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestUntagNote(t *testing.T) {
	env := newTestEnv(t)
	note := env.createNote(t, "N", "", nil)
	tag, err := env.tags.CreateTag(env.db, "t", nil)
	require.NoError(t, err)

	require.NoError(t, env.tags.TagNote(env.db, note.ID.String(), tag.ID.String()))
	require.NoError(t, env.tags.UntagNote(env.db, note.ID.String(), tag.ID.String()))

	tags, err := env.tags.GetTagsByNote(env.db, note.ID.String())
	require.NoError(t, err)
	assert.Empty(t, tags)

	// untagging an absent pair is a no-op
	require.NoError(t, env.tags.UntagNote(env.db, note.ID.String(), tag.ID.String()))
}
