package hotspot

import (
	"context"
	"testing"

	"github.com/go-routeros/routeros/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talkincode/hotspotbill/internal/domain"
	"github.com/talkincode/hotspotbill/internal/hotspot/clients"
)

func newTestHistoryService(t *testing.T, router *fakeRouter, store *memStore) *ConfigHistoryService {
	t.Helper()
	device := newTestDeviceService(t, store, router.Sess)
	return NewConfigHistoryService(store, device)
}

func TestRecordFirstSnapshot(t *testing.T) {
	store := newMemStore()
	store.addDevice(testDevice(1))
	svc := newTestHistoryService(t, newFakeRouter(), store)

	id, err := svc.Record(context.Background(), 1, `{"dhcp":"on"}`, domain.ConfigChangeCreate, "alice")
	require.NoError(t, err)
	assert.NotZero(t, id)

	current, err := store.Snapshots().GetCurrent(context.Background(), 1)
	require.NoError(t, err)
	require.NotNil(t, current)
	assert.Equal(t, 1, current.Version)
	assert.Equal(t, `{"dhcp":"on"}`, current.Content)
	assert.Equal(t, "alice", current.Actor)
}

func TestRecordPreservesPriorSnapshot(t *testing.T) {
	store := newMemStore()
	store.addDevice(testDevice(1))
	svc := newTestHistoryService(t, newFakeRouter(), store)

	_, err := svc.Record(context.Background(), 1, "v1-config", domain.ConfigChangeCreate, "alice")
	require.NoError(t, err)
	_, err = svc.Record(context.Background(), 1, "v2-config", domain.ConfigChangeUpdate, "bob")
	require.NoError(t, err)

	history, err := svc.History(context.Background(), 1, 10)
	require.NoError(t, err)
	require.Len(t, history, 3, "prior current is snapshotted before the update lands")

	current, err := store.Snapshots().GetCurrent(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "v2-config", current.Content)
	assert.Equal(t, domain.ConfigChangeUpdate, current.ChangeType)

	// The original row is still there, untouched.
	var v1 *domain.ConfigSnapshot
	for _, snap := range history {
		if snap.Version == 1 {
			v1 = snap
		}
	}
	require.NotNil(t, v1)
	assert.Equal(t, "v1-config", v1.Content)
	assert.False(t, v1.Current)
}

func TestRecordRejectsUnknownChangeType(t *testing.T) {
	store := newMemStore()
	store.addDevice(testDevice(1))
	svc := newTestHistoryService(t, newFakeRouter(), store)

	_, err := svc.Record(context.Background(), 1, "blob", "upsert", "alice")
	assert.Error(t, err)
}

func TestRestoreReplaysThroughHistory(t *testing.T) {
	store := newMemStore()
	store.addDevice(testDevice(1))
	svc := newTestHistoryService(t, newFakeRouter(), store)

	firstID, err := svc.Record(context.Background(), 1, "v1-config", domain.ConfigChangeCreate, "alice")
	require.NoError(t, err)
	_, err = svc.Record(context.Background(), 1, "v2-config", domain.ConfigChangeUpdate, "alice")
	require.NoError(t, err)

	restoredID, err := svc.Restore(context.Background(), 1, firstID, "carol")
	require.NoError(t, err)
	assert.NotEqual(t, firstID, restoredID, "restore appends, never rewrites")

	current, err := store.Snapshots().GetCurrent(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "v1-config", current.Content)
	assert.Equal(t, domain.ConfigChangeRestore, current.ChangeType)
	assert.Equal(t, "carol", current.Actor)
}

func TestRestoreRejectsForeignSnapshot(t *testing.T) {
	store := newMemStore()
	store.addDevice(testDevice(1))
	store.addDevice(testDevice(2))
	svc := newTestHistoryService(t, newFakeRouter(), store)

	id, err := svc.Record(context.Background(), 1, "dev1-config", domain.ConfigChangeCreate, "alice")
	require.NoError(t, err)

	_, err = svc.Restore(context.Background(), 2, id, "alice")
	assert.Error(t, err, "snapshots are bound to their device")
}

func TestCreateBackupRecordsDeviceFile(t *testing.T) {
	router := newFakeRouter()
	var savedName string
	router.Sess.Handle("/system/backup/save", func(args []string) (*routeros.Reply, error) {
		savedName = clients.SentenceArg(args, "name")
		return clients.ReplyDone(nil), nil
	})
	router.Sess.Handle("/file/print", func(args []string) (*routeros.Reply, error) {
		return clients.ReplyRe(map[string]string{
			"name": savedName + ".backup", "type": "backup", "size": "18345",
		}), nil
	})

	store := newMemStore()
	store.addDevice(testDevice(1))
	svc := newTestHistoryService(t, router, store)

	id, err := svc.CreateBackup(context.Background(), 1, "alice")
	require.NoError(t, err)
	assert.NotZero(t, id)
	assert.NotEmpty(t, savedName)

	current, err := store.Snapshots().GetCurrent(context.Background(), 1)
	require.NoError(t, err)

	var blob backupBlob
	require.NoError(t, json.Unmarshal([]byte(current.Content), &blob))
	assert.Equal(t, savedName+".backup", blob.BackupName)
	assert.Equal(t, int64(18345), blob.Size)
}

func TestRestoreBackupLoadsDeviceFile(t *testing.T) {
	router := newFakeRouter()
	router.Sess.Handle("/system/backup/save", func(args []string) (*routeros.Reply, error) {
		return clients.ReplyDone(nil), nil
	})
	var loadedName string
	router.Sess.Handle("/system/backup/load", func(args []string) (*routeros.Reply, error) {
		loadedName = clients.SentenceArg(args, "name")
		return clients.ReplyDone(nil), nil
	})

	store := newMemStore()
	store.addDevice(testDevice(1))
	svc := newTestHistoryService(t, router, store)

	backupID, err := svc.CreateBackup(context.Background(), 1, "alice")
	require.NoError(t, err)

	_, err = svc.RestoreBackup(context.Background(), 1, backupID, "alice")
	require.NoError(t, err)
	assert.Contains(t, loadedName, "hotspotbill-")

	current, err := store.Snapshots().GetCurrent(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, domain.ConfigChangeRestore, current.ChangeType)
}
