package object

import (
	"testing"
)

func TestPutGetRoundTripAllKinds(t *testing.T) {
	db := NewDB(t.TempDir())

	blobID, err := db.PutBlob(&Blob{Data: []byte("hello")})
	if err != nil {
		t.Fatalf("PutBlob: %v", err)
	}
	treeID, err := db.PutTree(&Tree{Entries: []TreeEntry{
		{Mode: ModeFile, Name: "a.txt", Target: blobID},
	}})
	if err != nil {
		t.Fatalf("PutTree: %v", err)
	}
	commitID, err := db.PutCommit(&Commit{
		Tree:      treeID,
		Author:    Identity{Name: "a", Email: "a@x.test", Timestamp: 1, TZOffset: "+0000"},
		Committer: Identity{Name: "a", Email: "a@x.test", Timestamp: 1, TZOffset: "+0000"},
		Message:   "init",
	})
	if err != nil {
		t.Fatalf("PutCommit: %v", err)
	}
	tagID, err := db.PutTag(&Tag{
		Object:  commitID,
		Type:    KindCommit,
		Name:    "v1",
		Tagger:  Identity{Name: "a", Email: "a@x.test", Timestamp: 1, TZOffset: "+0000"},
		Message: "release",
	})
	if err != nil {
		t.Fatalf("PutTag: %v", err)
	}

	blob, err := db.GetBlob(blobID)
	if err != nil || string(blob.Data) != "hello" {
		t.Errorf("GetBlob = %+v, %v", blob, err)
	}
	tree, err := db.GetTree(treeID)
	if err != nil || len(tree.Entries) != 1 || tree.Entries[0].Target != blobID {
		t.Errorf("GetTree = %+v, %v", tree, err)
	}
	commit, err := db.GetCommit(commitID)
	if err != nil || commit.Tree != treeID {
		t.Errorf("GetCommit = %+v, %v", commit, err)
	}
	tag, err := db.GetTag(tagID)
	if err != nil || tag.Object != commitID || tag.Name != "v1" {
		t.Errorf("GetTag = %+v, %v", tag, err)
	}
}

func TestPutIsIdempotent(t *testing.T) {
	db := NewDB(t.TempDir())

	id1, err := db.PutBlob(&Blob{Data: []byte("same")})
	if err != nil {
		t.Fatalf("PutBlob: %v", err)
	}
	id2, err := db.PutBlob(&Blob{Data: []byte("same")})
	if err != nil {
		t.Fatalf("PutBlob: %v", err)
	}
	if id1 != id2 {
		t.Errorf("ids differ across identical writes: %s != %s", id1, id2)
	}
}

func TestGetTypeMismatch(t *testing.T) {
	db := NewDB(t.TempDir())

	id, err := db.PutBlob(&Blob{Data: []byte("x")})
	if err != nil {
		t.Fatalf("PutBlob: %v", err)
	}
	if _, err := db.GetTree(id); err == nil {
		t.Fatal("GetTree on a blob hash should fail")
	}
}

// TestLooseAndPackedReadsAgree exercises property 6: reading an object
// gives byte-identical results whether it lives in loose storage or has
// been folded into a pack.
func TestLooseAndPackedReadsAgree(t *testing.T) {
	root := t.TempDir()
	db := NewDB(root)

	blobID, err := db.PutBlob(&Blob{Data: []byte("packed content")})
	if err != nil {
		t.Fatalf("PutBlob: %v", err)
	}
	treeID, err := db.PutTree(&Tree{Entries: []TreeEntry{
		{Mode: ModeFile, Name: "f", Target: blobID},
	}})
	if err != nil {
		t.Fatalf("PutTree: %v", err)
	}

	result, err := Pack(root)
	if err != nil {
		t.Fatalf("Pack: %v", err)
	}
	if result.ObjectsIn != 2 {
		t.Fatalf("ObjectsIn = %d, want 2", result.ObjectsIn)
	}
	if db.Loose().Has(blobID) {
		t.Errorf("blob %s still present in loose storage after Pack", blobID)
	}

	db.Clear()

	blob, err := db.GetBlob(blobID)
	if err != nil || string(blob.Data) != "packed content" {
		t.Errorf("GetBlob after pack = %+v, %v", blob, err)
	}
	tree, err := db.GetTree(treeID)
	if err != nil || len(tree.Entries) != 1 {
		t.Errorf("GetTree after pack = %+v, %v", tree, err)
	}

	report, err := Verify(root)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if !report.OK() {
		t.Errorf("Verify found errors: %v", report.Errors)
	}
	if report.PackChecked != 2 {
		t.Errorf("PackChecked = %d, want 2", report.PackChecked)
	}
}
