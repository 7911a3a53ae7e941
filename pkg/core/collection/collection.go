// Package collection mirrors a local library into the user's VGMdb
// collection through the forms of the vgmdb.net collection pages.
package collection

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	log "github.com/sirupsen/logrus"

	"github.com/angelospk/vgmdb-go/internal/constants"
	vgmerrors "github.com/angelospk/vgmdb-go/pkg/core/errors"
	"github.com/angelospk/vgmdb-go/pkg/core/queue"
)

// RootFolder is the folder name that targets the top level of the collection.
const RootFolder = "root"

const rootFolderID = "0"

// Collection page queries.
const (
	viewQuery   = "?do=view"
	addQuery    = "?do=add"
	manageQuery = "?do=manage&type=albums"
)

// Field tells VGMdb how to interpret the values passed to AddAlbums.
type Field string

const (
	FieldCatalog Field = "cn" // catalog numbers
	FieldID      Field = "id" // numeric album ids
)

// --- Client Interfaces for Dependency Injection ---

// Session defines the methods needed from the VGMdb session.
type Session interface {
	IsLoggedIn() bool
	FetchSitePage(ctx context.Context, pathAndQuery string) (*goquery.Document, error)
	PostSiteForm(ctx context.Context, pathAndQuery string, form url.Values) (*goquery.Document, error)
}

// Queue defines the methods needed from the pending operation queue.
type Queue interface {
	AddToQueue(ops ...queue.Operation) (int, error)
	GetNextPendingOperation() *queue.Operation
	UpdateStatus(id string, status queue.Status, message string) error
	MoveToHistory(id string) error
	ResetFailed() (int, error)
}

// Folder is a user-created collection folder.
type Folder struct {
	Name string `json:"name" yaml:"name"`
	ID   string `json:"id" yaml:"id"`
}

// Album is one entry of the collection.
type Album struct {
	Title    string `json:"title" yaml:"title"`
	AlbumID  string `json:"albumId" yaml:"albumId"`
	Catalog  string `json:"catalog" yaml:"catalog"`
	FolderID string `json:"folderId" yaml:"folderId"` // "0" for the root
	Ref      string `json:"ref" yaml:"ref"`           // collection entry id used for removal
}

// Config holds the collection settings.
type Config struct {
	Folder   string // folder name, RootFolder or "" for the top level
	OnImport bool   // add albums when the host imports them
	OnRemove bool   // remove albums when the host removes them
}

// SyncReport summarizes a Sync run.
type SyncReport struct {
	Added   []string `json:"added" yaml:"added"`     // catalog numbers sent to VGMdb
	Removed []string `json:"removed" yaml:"removed"` // collection refs removed
	Present int      `json:"present" yaml:"present"` // local catalogs already in the collection
	Queued  bool     `json:"queued" yaml:"queued"`   // a request failed and was queued
}

// FlushReport summarizes a Flush run.
type FlushReport struct {
	Sent    int `json:"sent" yaml:"sent"`
	Failed  int `json:"failed" yaml:"failed"`
	Skipped int `json:"skipped" yaml:"skipped"`
}

// Manager reads and updates one user's VGMdb collection.
type Manager struct {
	session Session
	config  Config
	queue   Queue // nil disables queuing
	logger  *log.Logger

	mu       sync.Mutex // Protects folderID
	folderID string
}

// NewManager creates a Manager. q may be nil.
func NewManager(session Session, config Config, q Queue, logger *log.Logger) *Manager {
	if logger == nil {
		logger = log.StandardLogger()
	}
	if strings.TrimSpace(config.Folder) == "" {
		config.Folder = RootFolder
	}
	return &Manager{
		session: session,
		config:  config,
		queue:   q,
		logger:  logger,
	}
}

// Config returns the manager settings.
func (m *Manager) Config() Config { return m.config }

func (m *Manager) requireLogin() error {
	if !m.session.IsLoggedIn() {
		return vgmerrors.ErrNotLoggedIn
	}
	return nil
}

// --- Reading the collection --- //

func (m *Manager) view(ctx context.Context) (*goquery.Document, error) {
	if err := m.requireLogin(); err != nil {
		return nil, err
	}
	doc, err := m.session.FetchSitePage(ctx, constants.CollectionPath+viewQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to load collection: %w", err)
	}
	return doc, nil
}

// Folders lists the folders of the collection.
func (m *Manager) Folders(ctx context.Context) ([]Folder, error) {
	doc, err := m.view(ctx)
	if err != nil {
		return nil, err
	}
	return parseFolders(doc), nil
}

// Albums lists every album of the collection, folder albums first and root
// albums last.
func (m *Manager) Albums(ctx context.Context) ([]Album, error) {
	doc, err := m.view(ctx)
	if err != nil {
		return nil, err
	}
	return parseAlbums(doc), nil
}

func parseFolders(doc *goquery.Document) []Folder {
	var folders []Folder
	doc.Find("ul.treeview").First().Find("li.submenu").Each(func(_ int, li *goquery.Selection) {
		id, ok := li.Attr("ref")
		if !ok {
			return
		}
		folders = append(folders, Folder{Name: leadingText(li), ID: id})
	})
	return folders
}

// leadingText returns the first non-blank text node directly inside s.
func leadingText(s *goquery.Selection) string {
	var text string
	s.Contents().EachWithBreak(func(_ int, n *goquery.Selection) bool {
		if goquery.NodeName(n) != "#text" {
			return true
		}
		text = strings.TrimSpace(n.Text())
		return text == ""
	})
	return text
}

func parseAlbums(doc *goquery.Document) []Album {
	tree := doc.Find("ul.treeview").First()
	var albums []Album
	tree.Find("li.submenu").Each(func(_ int, folder *goquery.Selection) {
		folderID, ok := folder.Attr("ref")
		if !ok {
			return
		}
		folder.Find("li").Each(func(_ int, li *goquery.Selection) {
			if a, ok := parseAlbum(li, folderID); ok {
				albums = append(albums, a)
			}
		})
	})
	tree.ChildrenFiltered("li:not([class])").Each(func(_ int, li *goquery.Selection) {
		if a, ok := parseAlbum(li, rootFolderID); ok {
			albums = append(albums, a)
		}
	})
	return albums
}

func parseAlbum(li *goquery.Selection, folderID string) (Album, bool) {
	ref, ok := li.Attr("ref")
	if !ok {
		return Album{}, false
	}
	anchor := li.Find("a").First()
	href, _ := anchor.Attr("href")
	title, _ := anchor.Attr("title")
	href = strings.TrimRight(href, "/")
	return Album{
		Title:    strings.TrimSpace(title),
		AlbumID:  href[strings.LastIndex(href, "/")+1:],
		Catalog:  strings.TrimSpace(li.Find("span.catalog").First().Text()),
		FolderID: folderID,
		Ref:      ref,
	}, true
}

// --- Folders --- //

// CreateFolder adds a top level folder.
func (m *Manager) CreateFolder(ctx context.Context, name string) error {
	if err := m.requireLogin(); err != nil {
		return err
	}
	form := url.Values{
		"formfoldername": {name},
		"formfolder":     {rootFolderID},
		"action":         {"addfolder"},
		"add_folder":     {"Add+Folders"},
	}
	if _, err := m.session.PostSiteForm(ctx, constants.CollectionPath+addQuery, form); err != nil {
		return fmt.Errorf("failed to create folder %q: %w", name, err)
	}
	m.logger.Infof("Created VGMdb collection folder %q", name)
	return nil
}

// EnsureFolder returns the id of the configured folder, creating it when it
// does not exist. The id is cached for the lifetime of the Manager.
func (m *Manager) EnsureFolder(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.folderID != "" {
		return m.folderID, nil
	}
	if strings.EqualFold(m.config.Folder, RootFolder) {
		m.folderID = rootFolderID
		return m.folderID, nil
	}

	id, err := m.findFolder(ctx)
	if err != nil {
		return "", err
	}
	if id == "" {
		if err := m.CreateFolder(ctx, m.config.Folder); err != nil {
			return "", err
		}
		if id, err = m.findFolder(ctx); err != nil {
			return "", err
		}
	}
	if id == "" {
		return "", fmt.Errorf("%w: %q", vgmerrors.ErrFolderNotFound, m.config.Folder)
	}
	m.folderID = id
	return id, nil
}

func (m *Manager) findFolder(ctx context.Context) (string, error) {
	folders, err := m.Folders(ctx)
	if err != nil {
		return "", err
	}
	for _, f := range folders {
		if f.Name == m.config.Folder {
			return f.ID, nil
		}
	}
	return "", nil
}

// --- Adding and removing --- //

// AddAlbums adds albums to the configured folder. Values are catalog numbers
// or album ids depending on field. When the request fails with a transient
// error and a queue is configured, the values are queued and the returned
// error wraps errors.ErrQueued.
func (m *Manager) AddAlbums(ctx context.Context, values []string, field Field) error {
	values = compact(values)
	if len(values) == 0 {
		return nil
	}
	if err := m.requireLogin(); err != nil {
		return err
	}
	folderID, err := m.EnsureFolder(ctx)
	if err != nil {
		return err
	}
	err = m.postAdd(ctx, values, field, folderID)
	if err == nil {
		m.logger.Infof("Added %d album(s) to the VGMdb collection", len(values))
		return nil
	}
	ops := make([]queue.Operation, 0, len(values))
	for _, v := range values {
		ops = append(ops, queue.Operation{Action: queue.ActionAdd, Value: v, Field: string(field), Folder: folderID})
	}
	return m.deferOps(err, ops)
}

func (m *Manager) postAdd(ctx context.Context, values []string, field Field, folderID string) error {
	if field != FieldID {
		field = FieldCatalog
	}
	form := url.Values{
		"formalbumids": {strings.Join(values, "\r\n")},
		"formfolder":   {folderID},
		"action":       {"addalbum"},
		"add_album":    {"Add+Albums"},
		"formfield":    {string(field)},
	}
	if _, err := m.session.PostSiteForm(ctx, constants.CollectionPath+addQuery, form); err != nil {
		return fmt.Errorf("failed to add albums: %w", err)
	}
	return nil
}

// RemoveAlbums deletes collection entries by their ref. Transient failures
// are queued like in AddAlbums.
func (m *Manager) RemoveAlbums(ctx context.Context, refs []string) error {
	refs = compact(refs)
	if len(refs) == 0 {
		return nil
	}
	if err := m.requireLogin(); err != nil {
		return err
	}
	err := m.postRemove(ctx, refs)
	if err == nil {
		m.logger.Infof("Removed %d album(s) from the VGMdb collection", len(refs))
		return nil
	}
	ops := make([]queue.Operation, 0, len(refs))
	for _, r := range refs {
		ops = append(ops, queue.Operation{Action: queue.ActionRemove, Value: r})
	}
	return m.deferOps(err, ops)
}

func (m *Manager) postRemove(ctx context.Context, refs []string) error {
	form := url.Values{
		"action": {"delete"},
		"submit": {"Submit"},
	}
	for _, r := range refs {
		form.Set("album["+r+"]", "1")
	}
	if _, err := m.session.PostSiteForm(ctx, constants.CollectionPath+manageQuery, form); err != nil {
		return fmt.Errorf("failed to remove albums: %w", err)
	}
	return nil
}

// deferOps queues ops after a transient failure, or returns err unchanged.
func (m *Manager) deferOps(err error, ops []queue.Operation) error {
	if m.queue == nil || !vgmerrors.IsTransient(err) {
		return err
	}
	if _, qErr := m.queue.AddToQueue(ops...); qErr != nil {
		m.logger.Errorf("Failed to queue %d collection operation(s): %v", len(ops), qErr)
		return err
	}
	m.logger.Warnf("VGMdb unavailable, queued %d collection operation(s): %v", len(ops), err)
	return fmt.Errorf("%w: %w", vgmerrors.ErrQueued, err)
}

// --- Library events --- //

// AlbumImported adds the catalog number to the collection unless it is
// already there. It does nothing when OnImport is off.
func (m *Manager) AlbumImported(ctx context.Context, catalog string) error {
	catalog = strings.TrimSpace(catalog)
	if !m.config.OnImport || catalog == "" {
		return nil
	}
	albums, err := m.Albums(ctx)
	if err != nil {
		return err
	}
	for _, a := range albums {
		if a.Catalog == catalog {
			m.logger.Debugf("%s is already in the VGMdb collection", catalog)
			return nil
		}
	}
	return m.AddAlbums(ctx, []string{catalog}, FieldCatalog)
}

// AlbumRemoved removes every collection entry with the catalog number. It
// does nothing when OnRemove is off.
func (m *Manager) AlbumRemoved(ctx context.Context, catalog string) error {
	catalog = strings.TrimSpace(catalog)
	if !m.config.OnRemove || catalog == "" {
		return nil
	}
	albums, err := m.Albums(ctx)
	if err != nil {
		return err
	}
	var refs []string
	for _, a := range albums {
		if a.Catalog == catalog {
			refs = append(refs, a.Ref)
		}
	}
	return m.RemoveAlbums(ctx, refs)
}

// Sync adds every local catalog number missing from the collection and,
// when removeMissing is set, removes collection entries whose catalog
// number is not in the library.
func (m *Manager) Sync(ctx context.Context, catalogs []string, removeMissing bool) (SyncReport, error) {
	var report SyncReport
	albums, err := m.Albums(ctx)
	if err != nil {
		return report, err
	}

	local := make(map[string]struct{})
	for _, c := range compact(catalogs) {
		local[c] = struct{}{}
	}
	remote := make(map[string]struct{}, len(albums))
	for _, a := range albums {
		remote[a.Catalog] = struct{}{}
	}

	for _, c := range compact(catalogs) {
		if _, ok := remote[c]; ok {
			report.Present++
			continue
		}
		report.Added = append(report.Added, c)
	}
	if err := m.AddAlbums(ctx, report.Added, FieldCatalog); err != nil {
		if !errors.Is(err, vgmerrors.ErrQueued) {
			return report, err
		}
		report.Queued = true
	}

	if removeMissing {
		for _, a := range albums {
			if _, ok := local[a.Catalog]; !ok {
				report.Removed = append(report.Removed, a.Ref)
			}
		}
		if err := m.RemoveAlbums(ctx, report.Removed); err != nil {
			if !errors.Is(err, vgmerrors.ErrQueued) {
				return report, err
			}
			report.Queued = true
		}
	}

	m.logger.Infof("VGMdb collection sync: %d added, %d removed, %d already present", len(report.Added), len(report.Removed), report.Present)
	return report, nil
}

// --- Queue replay --- //

// Flush replays queued operations one by one. Operations that fail with a
// transient error stay queued as failed and are retried by the next Flush;
// other failures are moved to the history as skipped.
func (m *Manager) Flush(ctx context.Context) (FlushReport, error) {
	var report FlushReport
	if m.queue == nil {
		return report, nil
	}
	if err := m.requireLogin(); err != nil {
		return report, err
	}
	if _, err := m.queue.ResetFailed(); err != nil {
		return report, err
	}

	for op := m.queue.GetNextPendingOperation(); op != nil; op = m.queue.GetNextPendingOperation() {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		if err := m.queue.UpdateStatus(op.ID, queue.StatusRunning, ""); err != nil {
			return report, err
		}

		var sendErr error
		switch op.Action {
		case queue.ActionAdd:
			folderID := op.Folder
			if folderID == "" {
				if folderID, sendErr = m.EnsureFolder(ctx); sendErr != nil {
					break
				}
			}
			sendErr = m.postAdd(ctx, []string{op.Value}, Field(op.Field), folderID)
		case queue.ActionRemove:
			sendErr = m.postRemove(ctx, []string{op.Value})
		default:
			sendErr = fmt.Errorf("unknown action %q", op.Action)
		}

		switch {
		case sendErr == nil:
			report.Sent++
			if err := m.finish(op.ID, queue.StatusComplete, ""); err != nil {
				return report, err
			}
		case vgmerrors.IsTransient(sendErr):
			report.Failed++
			if err := m.queue.UpdateStatus(op.ID, queue.StatusFailed, sendErr.Error()); err != nil {
				return report, err
			}
		default:
			report.Skipped++
			m.logger.Warnf("Dropping queued %s of %s: %v", op.Action, op.Value, sendErr)
			if err := m.finish(op.ID, queue.StatusSkipped, sendErr.Error()); err != nil {
				return report, err
			}
		}
	}

	m.logger.Infof("Flushed collection queue: %d sent, %d failed, %d skipped", report.Sent, report.Failed, report.Skipped)
	return report, nil
}

func (m *Manager) finish(id string, status queue.Status, message string) error {
	if err := m.queue.UpdateStatus(id, status, message); err != nil {
		return err
	}
	return m.queue.MoveToHistory(id)
}

// compact trims values and drops blanks and duplicates, keeping order.
func compact(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
