//go:build windows

package wua

import (
	"fmt"
	"runtime"

	"github.com/go-ole/go-ole"
	"github.com/go-ole/go-ole/oleutil"
)

// UpdateService talks to the Windows Update Agent through its COM
// object model (Microsoft.Update.Session). Every operation opens its
// own apartment-threaded session and blocks until the agent finishes;
// the WUA has no cancellation for in-flight search/download/install.
type UpdateService struct {
	opts Options
}

// NewUpdateService creates an UpdateService.
func NewUpdateService(opts Options) *UpdateService {
	return &UpdateService{opts: opts}
}

// Search queries the update service for updates matching criteria.
func (s *UpdateService) Search(criteria string) ([]Update, error) {
	var found []Update
	err := s.withSession(func(session *ole.IDispatch) error {
		updates, err := s.searchCollection(session, criteria)
		if err != nil {
			return err
		}
		defer updates.Release()

		count, err := collectionCount(updates)
		if err != nil {
			return err
		}

		for i := 0; i < count; i++ {
			item, err := collectionItem(updates, i)
			if err != nil {
				continue
			}

			update, err := s.toUpdate(item)
			item.Release()
			if err != nil {
				continue
			}

			if s.opts.ExcludeDrivers && update.UpdateType == "driver" {
				continue
			}
			found = append(found, update)
		}

		return nil
	})
	return found, err
}

// Download fetches every update in the batch as one downloader job and
// returns the batch-level result code.
func (s *UpdateService) Download(batch []Update) (DownloadResult, error) {
	var result DownloadResult
	err := s.withSession(func(session *ole.IDispatch) error {
		collection, err := s.buildCollection(session, batch)
		if err != nil {
			return err
		}
		defer collection.Release()

		downloaderVar, err := oleutil.CallMethod(session, "CreateUpdateDownloader")
		if err != nil {
			return fmt.Errorf("create downloader failed: %w", err)
		}
		defer downloaderVar.Clear()

		downloader := downloaderVar.ToIDispatch()
		if downloader == nil {
			return fmt.Errorf("create downloader failed: nil downloader")
		}
		defer downloader.Release()

		if _, err := oleutil.PutProperty(downloader, "Updates", collection); err != nil {
			return fmt.Errorf("set downloader updates failed: %w", err)
		}

		downloadVar, err := oleutil.CallMethod(downloader, "Download")
		if err != nil {
			return fmt.Errorf("download failed: %w", err)
		}
		defer downloadVar.Clear()

		downloadResult := downloadVar.ToIDispatch()
		if downloadResult == nil {
			return fmt.Errorf("download failed: missing result")
		}
		defer downloadResult.Release()

		code, _ := getIntProperty(downloadResult, "ResultCode")
		hresult, _ := getIntProperty(downloadResult, "HResult")
		result = DownloadResult{ResultCode: ResultFromRaw(code), HResult: hresult}
		return nil
	})
	return result, err
}

// Install installs every update in the batch as one installer job. The
// returned result carries per-item result codes in batch order plus the
// batch-level reboot flag.
func (s *UpdateService) Install(batch []Update) (InstallResult, error) {
	var result InstallResult
	err := s.withSession(func(session *ole.IDispatch) error {
		collection, err := s.buildCollection(session, batch)
		if err != nil {
			return err
		}
		defer collection.Release()

		installerVar, err := oleutil.CallMethod(session, "CreateUpdateInstaller")
		if err != nil {
			return fmt.Errorf("create installer failed: %w", err)
		}
		defer installerVar.Clear()

		installer := installerVar.ToIDispatch()
		if installer == nil {
			return fmt.Errorf("create installer failed: nil installer")
		}
		defer installer.Release()

		if _, err := oleutil.PutProperty(installer, "Updates", collection); err != nil {
			return fmt.Errorf("set installer updates failed: %w", err)
		}

		installVar, err := oleutil.CallMethod(installer, "Install")
		if err != nil {
			return fmt.Errorf("install failed: %w", err)
		}
		defer installVar.Clear()

		installResult := installVar.ToIDispatch()
		if installResult == nil {
			return fmt.Errorf("install failed: missing result")
		}
		defer installResult.Release()

		code, _ := getIntProperty(installResult, "ResultCode")
		rebootRequired, _ := getBoolProperty(installResult, "RebootRequired")

		result = InstallResult{
			ResultCode:     ResultFromRaw(code),
			RebootRequired: rebootRequired,
			Updates:        make([]UpdateResult, 0, len(batch)),
		}

		for i := range batch {
			itemVar, err := oleutil.CallMethod(installResult, "GetUpdateResult", i)
			if err != nil {
				result.Updates = append(result.Updates, UpdateResult{ResultCode: result.ResultCode})
				continue
			}

			item := itemVar.ToIDispatch()
			itemVar.Clear()
			if item == nil {
				result.Updates = append(result.Updates, UpdateResult{ResultCode: result.ResultCode})
				continue
			}

			itemCode, _ := getIntProperty(item, "ResultCode")
			hresult, _ := getIntProperty(item, "HResult")
			item.Release()

			result.Updates = append(result.Updates, UpdateResult{
				ResultCode: ResultFromRaw(itemCode),
				HResult:    hresult,
			})
		}

		return nil
	})
	return result, err
}

// withSession runs action against a fresh Microsoft.Update.Session.
// COM requires the calling goroutine to stay on one OS thread for the
// lifetime of the apartment.
func (s *UpdateService) withSession(action func(session *ole.IDispatch) error) error {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	if err := ole.CoInitializeEx(0, ole.COINIT_APARTMENTTHREADED); err != nil {
		return fmt.Errorf("failed to initialize COM: %w", err)
	}
	defer ole.CoUninitialize()

	unknown, err := oleutil.CreateObject("Microsoft.Update.Session")
	if err != nil {
		return fmt.Errorf("failed to create update session: %w", err)
	}
	defer unknown.Release()

	session, err := unknown.QueryInterface(ole.IID_IDispatch)
	if err != nil {
		return fmt.Errorf("failed to query update session: %w", err)
	}
	defer session.Release()

	return action(session)
}

// searchCollection runs a searcher against criteria and returns the
// resulting Updates collection. The caller releases the collection.
func (s *UpdateService) searchCollection(session *ole.IDispatch, criteria string) (*ole.IDispatch, error) {
	searcherVar, err := oleutil.CallMethod(session, "CreateUpdateSearcher")
	if err != nil {
		return nil, fmt.Errorf("create searcher failed: %w", err)
	}
	defer searcherVar.Clear()

	searcher := searcherVar.ToIDispatch()
	if searcher == nil {
		return nil, fmt.Errorf("create searcher failed: nil searcher")
	}
	defer searcher.Release()

	resultVar, err := oleutil.CallMethod(searcher, "Search", criteria)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}
	defer resultVar.Clear()

	result := resultVar.ToIDispatch()
	if result == nil {
		return nil, fmt.Errorf("search failed: nil result")
	}
	defer result.Release()

	updatesVar, err := oleutil.GetProperty(result, "Updates")
	if err != nil {
		return nil, fmt.Errorf("updates collection failed: %w", err)
	}

	// Not cleared here: the caller owns the collection and releases it.
	updates := updatesVar.ToIDispatch()
	if updates == nil {
		updatesVar.Clear()
		return nil, fmt.Errorf("updates collection missing")
	}

	return updates, nil
}

// buildCollection re-resolves the batch inside this session and adds
// each update to a fresh Microsoft.Update.UpdateColl, preserving batch
// order. The caller releases the returned collection.
func (s *UpdateService) buildCollection(session *ole.IDispatch, batch []Update) (*ole.IDispatch, error) {
	collectionObj, err := oleutil.CreateObject("Microsoft.Update.UpdateColl")
	if err != nil {
		return nil, fmt.Errorf("create update collection failed: %w", err)
	}
	defer collectionObj.Release()

	collection, err := collectionObj.QueryInterface(ole.IID_IDispatch)
	if err != nil {
		return nil, fmt.Errorf("update collection dispatch failed: %w", err)
	}

	pending, err := s.searchCollection(session, "IsInstalled=0")
	if err != nil {
		collection.Release()
		return nil, err
	}
	defer pending.Release()

	resolved, err := s.indexByID(pending)
	if err != nil {
		collection.Release()
		return nil, err
	}
	defer func() {
		for _, item := range resolved {
			item.Release()
		}
	}()

	for _, update := range batch {
		item, ok := resolved[update.ID]
		if !ok {
			collection.Release()
			return nil, fmt.Errorf("update %s not found", update.ID)
		}

		if s.opts.AutoAcceptEula {
			if accepted, _ := getBoolProperty(item, "EulaAccepted"); !accepted {
				// Best-effort, the install surfaces a result code if it mattered.
				oleutil.CallMethod(item, "AcceptEula")
			}
		}

		if _, err := oleutil.CallMethod(collection, "Add", item); err != nil {
			collection.Release()
			return nil, fmt.Errorf("add update %s failed: %w", update.ID, err)
		}
	}

	return collection, nil
}

// indexByID maps UpdateID to the IDispatch items of a collection. The
// caller releases every returned item.
func (s *UpdateService) indexByID(updates *ole.IDispatch) (map[string]*ole.IDispatch, error) {
	count, err := collectionCount(updates)
	if err != nil {
		return nil, err
	}

	index := make(map[string]*ole.IDispatch, count)
	for i := 0; i < count; i++ {
		item, err := collectionItem(updates, i)
		if err != nil {
			continue
		}

		id, err := s.updateID(item)
		if err != nil || id == "" {
			item.Release()
			continue
		}

		if _, dup := index[id]; dup {
			item.Release()
			continue
		}
		index[id] = item
	}

	return index, nil
}

func (s *UpdateService) updateID(update *ole.IDispatch) (string, error) {
	identityVar, err := oleutil.GetProperty(update, "Identity")
	if err != nil {
		return "", err
	}
	defer identityVar.Clear()

	identity := identityVar.ToIDispatch()
	if identity == nil {
		return "", fmt.Errorf("update identity missing")
	}
	defer identity.Release()

	return getStringProperty(identity, "UpdateID")
}

func (s *UpdateService) toUpdate(item *ole.IDispatch) (Update, error) {
	id, err := s.updateID(item)
	if err != nil {
		return Update{}, err
	}

	title, _ := getStringProperty(item, "Title")
	size, _ := getIntProperty(item, "MaxDownloadSize")
	isDownloaded, _ := getBoolProperty(item, "IsDownloaded")
	eulaAccepted, _ := getBoolProperty(item, "EulaAccepted")

	updateType := "software"
	if typeVal, _ := getIntProperty(item, "Type"); typeVal == 2 {
		updateType = "driver"
	}
	if browseOnly, _ := getBoolProperty(item, "BrowseOnly"); browseOnly {
		updateType = "feature"
	}

	return Update{
		ID:           id,
		Title:        title,
		KBNumber:     kbNumber(item),
		SizeBytes:    int64(size),
		IsDownloaded: isDownloaded,
		EulaAccepted: eulaAccepted,
		UpdateType:   updateType,
	}, nil
}

// kbNumber extracts the first KB article ID from the update, if any.
func kbNumber(update *ole.IDispatch) string {
	kbIDsVar, err := oleutil.GetProperty(update, "KBArticleIDs")
	if err != nil {
		return ""
	}
	defer kbIDsVar.Clear()

	kbIDs := kbIDsVar.ToIDispatch()
	if kbIDs == nil {
		return ""
	}
	defer kbIDs.Release()

	count, err := collectionCount(kbIDs)
	if err != nil || count == 0 {
		return ""
	}

	itemVar, err := oleutil.CallMethod(kbIDs, "Item", 0)
	if err != nil {
		return ""
	}
	defer itemVar.Clear()

	kb := itemVar.ToString()
	if kb != "" && kb[0] != 'K' {
		kb = "KB" + kb
	}
	return kb
}

func collectionCount(collection *ole.IDispatch) (int, error) {
	countVar, err := oleutil.GetProperty(collection, "Count")
	if err != nil {
		return 0, fmt.Errorf("collection count failed: %w", err)
	}
	defer countVar.Clear()
	return int(countVar.Val), nil
}

func collectionItem(collection *ole.IDispatch, i int) (*ole.IDispatch, error) {
	itemVar, err := oleutil.CallMethod(collection, "Item", i)
	if err != nil {
		return nil, err
	}

	item := itemVar.ToIDispatch()
	itemVar.Clear()
	if item == nil {
		return nil, fmt.Errorf("collection item %d missing", i)
	}
	return item, nil
}

func getStringProperty(dispatch *ole.IDispatch, name string) (string, error) {
	value, err := oleutil.GetProperty(dispatch, name)
	if err != nil {
		return "", err
	}
	defer value.Clear()
	return value.ToString(), nil
}

func getIntProperty(dispatch *ole.IDispatch, name string) (int, error) {
	value, err := oleutil.GetProperty(dispatch, name)
	if err != nil {
		return 0, err
	}
	defer value.Clear()
	return int(value.Val), nil
}

func getBoolProperty(dispatch *ole.IDispatch, name string) (bool, error) {
	value, err := oleutil.GetProperty(dispatch, name)
	if err != nil {
		return false, err
	}
	defer value.Clear()
	return value.Val != 0, nil
}
