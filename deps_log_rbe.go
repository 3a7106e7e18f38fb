package main

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"

	"deps-log-go/model"

	"github.com/pkg/errors"
)

// / Client side of the deps sharing service. Push uploads the local log
// / together with a snapshot manifest; pull fetches the newest snapshot
// / for this instance and swaps it in atomically.

// / Stable fallback instance name: machine plus the log's absolute path.
func DefaultInstanceName(log_file string) string {
	host, _ := os.Hostname()
	abs, aerr := filepath.Abs(log_file)
	if aerr != nil {
		abs = log_file
	}
	return fmt.Sprintf("%016x", HashString(host+":"+abs))
}

func buildSnapshotManifest(log_file string, instance string) (*model.DepsSnapshot, error) {
	state := NewState()
	deps_log := NewDepsLog()
	load_err := ""
	status := deps_log.Load(log_file, state, &load_err)
	if status == LOAD_ERROR {
		return nil, errors.Errorf("loading %s: %s", log_file, load_err)
	}
	if status == LOAD_NOT_FOUND {
		return nil, errors.Errorf("%s: no deps log to push", log_file)
	}

	content_hash, err := HashSingleFile(log_file)
	if err != nil {
		return nil, err
	}

	snapshot := &model.DepsSnapshot{
		LogName:     filepath.Base(log_file),
		ContentHash: content_hash,
		Instance:    instance,
		PathCount:   len(deps_log.nodes()),
	}
	for _, node := range deps_log.nodes() {
		if deps_log.GetDeps(node) == nil {
			continue
		}
		snapshot.DepsCount++
		digest, notExist, derr := ContentDigest(node.path())
		if derr != nil || notExist {
			// Outputs may not exist on this machine anymore; the
			// snapshot still names them, just without a digest.
			snapshot.Files = append(snapshot.Files, &model.DepsFile{FilePath: node.path()})
			continue
		}
		snapshot.Files = append(snapshot.Files, &model.DepsFile{
			FilePath: node.path(),
			FileHash: fmt.Sprintf("%016x", digest),
		})
	}
	return snapshot, nil
}

func PushDepsLog(log_file, service, instance string) error {
	snapshot, err := buildSnapshotManifest(log_file, instance)
	if err != nil {
		return err
	}
	manifest, err := json.Marshal(snapshot)
	if err != nil {
		return errors.Wrap(err, "marshal snapshot")
	}

	f, err := os.Open(log_file)
	if err != nil {
		return err
	}
	defer f.Close()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	if err := writer.WriteField("body", base64.StdEncoding.EncodeToString(manifest)); err != nil {
		return err
	}
	part, err := writer.CreateFormFile("file", snapshot.LogName)
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, f); err != nil {
		return err
	}
	if err := writer.Close(); err != nil {
		return err
	}

	resp, err := http.Post(service+"/upload", writer.FormDataContentType(), body)
	if err != nil {
		return errors.Wrap(err, "upload")
	}
	defer resp.Body.Close()
	reply, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return errors.Errorf("upload failed: %s: %s", resp.Status, string(reply))
	}
	return nil
}

func querySnapshots(service, instance, log_name string) ([]*model.DepsSnapshot, error) {
	query := fmt.Sprintf("%s/query?instance=%s&log_name=%s", service,
		url.QueryEscape(instance), url.QueryEscape(log_name))
	resp, err := http.Get(query)
	if err != nil {
		return nil, errors.Wrap(err, "query")
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("query failed: %s", resp.Status)
	}
	var snapshots []*model.DepsSnapshot
	if err := json.NewDecoder(resp.Body).Decode(&snapshots); err != nil {
		return nil, errors.Wrap(err, "decode query reply")
	}
	if len(snapshots) == 0 {
		return nil, errors.Errorf("no snapshots for instance '%s'", instance)
	}
	return snapshots, nil
}

func PullDepsLog(log_file, service, instance string) error {
	snapshots, err := querySnapshots(service, instance, filepath.Base(log_file))
	if err != nil {
		return err
	}
	newest := snapshots[0]

	resp, err := http.Get(service + "/" + newest.ParamsHash)
	if err != nil {
		return errors.Wrap(err, "download")
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return errors.Errorf("download failed: %s", resp.Status)
	}

	temp_path := log_file + ".pull"
	temp, err := os.Create(temp_path)
	if err != nil {
		return err
	}
	if _, err := io.Copy(temp, resp.Body); err != nil {
		temp.Close()
		os.Remove(temp_path)
		return err
	}
	if err := temp.Close(); err != nil {
		os.Remove(temp_path)
		return err
	}

	content_hash, err := HashSingleFile(temp_path)
	if err != nil {
		os.Remove(temp_path)
		return err
	}
	if content_hash != newest.ContentHash {
		os.Remove(temp_path)
		return errors.Errorf("downloaded snapshot hash mismatch: got %s, want %s",
			content_hash, newest.ContentHash)
	}

	// The snapshot must replay cleanly before it may replace the local log.
	state := NewState()
	check := NewDepsLog()
	load_err := ""
	if check.Load(temp_path, state, &load_err) != LOAD_SUCCESS {
		os.Remove(temp_path)
		return errors.Errorf("downloaded snapshot does not load: %s", load_err)
	}

	if err := os.Rename(temp_path, log_file); err != nil {
		os.Remove(temp_path)
		return err
	}
	return nil
}
