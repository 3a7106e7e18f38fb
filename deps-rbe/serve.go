package main

import (
	"cmp"
	"context"
	"encoding/base64"
	"encoding/json"
	"expvar"
	"fmt"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"deps-log-go/model"

	"github.com/sirupsen/logrus"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/expvarhandler"
	"github.com/zeebo/blake3"
)

// Various counters - see https://pkg.go.dev/expvar for details.
var (
	// Counter for total number of fs calls
	fsCalls = expvar.NewInt("fsCalls")

	// Counters for various response status codes
	fsOKResponses          = expvar.NewInt("fsOKResponses")
	fsNotModifiedResponses = expvar.NewInt("fsNotModifiedResponses")
	fsNotFoundResponses    = expvar.NewInt("fsNotFoundResponses")
	fsOtherResponses       = expvar.NewInt("fsOtherResponses")

	// Total size in bytes for OK response bodies served.
	fsResponseBodyBytes = expvar.NewInt("fsResponseBodyBytes")

	uploads = expvar.NewInt("uploads")
	queries = expvar.NewInt("queries")

	fsRootDir string
	fsServer  *fasthttp.Server
)

func ParseSnapshot(ctx *fasthttp.RequestCtx) (*model.DepsSnapshot, error) {
	body := ctx.FormValue("body")
	base64Buf := make([]byte, base64.StdEncoding.DecodedLen(len(body)))
	n, err := base64.StdEncoding.Decode(base64Buf, body)
	if err != nil {
		return nil, err
	}
	var snapshot model.DepsSnapshot
	err = json.Unmarshal(base64Buf[:n], &snapshot)
	if err != nil {
		return nil, err
	}
	expired_duration_str := string(ctx.FormValue("expired_duration"))
	expired_duration := 24 * time.Hour
	if expired_duration_str != "" {
		expired_duration, _ = time.ParseDuration(expired_duration_str)
	}
	now := time.Now()
	created_at := now.Unix()
	last_access := created_at
	snapshot.CreatedAt = created_at
	snapshot.LastAccess = last_access
	snapshot.ExpiredDuration = int64(expired_duration / time.Second)
	return &snapshot, nil
}

func HashSnapshot(snapshot *model.DepsSnapshot) string {
	h := blake3.New()
	h.WriteString(fmt.Sprintf("n:%s,%s,%s\n", snapshot.Instance,
		snapshot.LogName, snapshot.ContentHash))
	for _, file := range snapshot.Files {
		h.WriteString(fmt.Sprintf("f:%s,%s\n", file.FilePath, file.FileHash))
	}
	return fmt.Sprintf("%x", h.Sum(nil))
}

func HandleUpload(ctx *fasthttp.RequestCtx) {
	ctx.Response.Reset()
	header, err := ctx.FormFile("file")
	if err != nil {
		ctx.Error(err.Error(), fasthttp.StatusInternalServerError)
		return
	}
	snapshot, err := ParseSnapshot(ctx)
	if err != nil {
		ctx.Error(err.Error(), fasthttp.StatusBadRequest)
		return
	}
	slices.SortFunc(snapshot.Files, func(a, b *model.DepsFile) int {
		return cmp.Compare(a.FilePath, b.FilePath)
	})
	paramsHash := HashSnapshot(snapshot)
	exist, err := CheckSnapshotExist(paramsHash)
	if err != nil {
		ctx.Error(err.Error(), fasthttp.StatusInternalServerError)
		return
	}
	snapshot.ParamsHash = paramsHash
	if exist {
		ctx.Success("plain/text", []byte("already exists."))
		return
	}
	if err := fasthttp.SaveMultipartFile(header, filepath.Join(fsRootDir, paramsHash)); err != nil {
		ctx.Error(err.Error(), fasthttp.StatusInternalServerError)
		return
	}
	if err := RecordBlob(paramsHash, header.Size); err != nil {
		ctx.Error(err.Error(), fasthttp.StatusInternalServerError)
		return
	}
	if err := SaveSnapshot(snapshot); err != nil {
		ctx.Error(err.Error(), fasthttp.StatusInternalServerError)
		return
	}
	uploads.Add(1)
	logrus.WithFields(logrus.Fields{
		"instance": snapshot.Instance,
		"log":      snapshot.LogName,
		"hash":     paramsHash,
	}).Info("stored snapshot")
	ctx.Success("plain/text", []byte("success"))
}

func HandleQuery(ctx *fasthttp.RequestCtx) {
	ctx.Response.Reset()
	queries.Add(1)
	instance := string(ctx.QueryArgs().Peek("instance"))
	logName := string(ctx.QueryArgs().Peek("log_name"))
	snapshots, err := FindSnapshots(instance, logName)
	if err != nil {
		ctx.Error(err.Error(), fasthttp.StatusInternalServerError)
		return
	}
	buf, err := json.Marshal(snapshots)
	if err != nil {
		ctx.Error(err.Error(), fasthttp.StatusInternalServerError)
		return
	}
	ctx.Success("application/json", buf)
}

func UpdateSnapshotLastAccess(ctx *fasthttp.RequestCtx) {
	path := string(ctx.Path())
	paths := strings.Split(path, "/")
	if len(paths) != 2 {
		return
	}
	paramsHash := paths[1]
	if err := UpdateSnapshotAccess(paramsHash); err != nil {
		logrus.WithError(err).Warn("update snapshot access")
		return
	}
	if err := TouchBlob(paramsHash); err != nil {
		logrus.WithError(err).Warn("touch blob")
	}
}

func updateFSCounters(ctx *fasthttp.RequestCtx) {
	// Increment the number of fsHandler calls.
	fsCalls.Add(1)

	// Update other stats counters
	resp := &ctx.Response
	switch resp.StatusCode() {
	case fasthttp.StatusOK:
		fsOKResponses.Add(1)
		fsResponseBodyBytes.Add(int64(resp.Header.ContentLength()))
	case fasthttp.StatusNotModified:
		fsNotModifiedResponses.Add(1)
	case fasthttp.StatusNotFound:
		fsNotFoundResponses.Add(1)
	default:
		fsOtherResponses.Add(1)
	}
}

func ServeFiles(addr, rootDir string, compress, byteRange, generateIndexPages, vhost bool) {
	// Setup FS handler
	fsRootDir = rootDir
	fs := &fasthttp.FS{
		Root:               rootDir,
		IndexNames:         []string{"index.html"},
		GenerateIndexPages: generateIndexPages,
		Compress:           compress,
		AcceptByteRange:    byteRange,
	}
	if vhost {
		fs.PathRewrite = fasthttp.NewVHostPathRewriter(0)
	}
	fsHandler := fs.NewRequestHandler()
	// Create RequestHandler serving server stats on /stats and files
	// on other requested paths.
	// /stats output may be filtered using regexps. For example:
	//
	//   * /stats?r=fs will show only stats (expvars) containing 'fs'
	//     in their names.
	requestHandler := func(ctx *fasthttp.RequestCtx) {
		switch string(ctx.Path()) {
		case "/stats":
			expvarhandler.ExpvarHandler(ctx)
		case "/upload":
			HandleUpload(ctx)
		case "/query":
			HandleQuery(ctx)
		default:
			fsHandler(ctx)
			UpdateSnapshotLastAccess(ctx)
			updateFSCounters(ctx)
		}
	}
	// Start HTTP server.
	if len(addr) > 0 {
		logrus.Infof("starting HTTP server on %q", addr)
		fsServer = &fasthttp.Server{
			Handler:      requestHandler,
			ReadTimeout:  15 * time.Minute,
			WriteTimeout: 15 * time.Minute,
			Concurrency:  256 * 1024,
		}
		if err := fsServer.ListenAndServe(addr); err != nil {
			logrus.WithError(err).Fatal("ListenAndServe")
		}
	}
	// Wait forever.
}

func shutdown(ctx context.Context) {
	CloseDb()
	CloseBlobIndex()
	StopScheduler()
	if fsServer == nil {
		return
	}
	if err := fsServer.ShutdownWithContext(ctx); err != nil {
		logrus.WithError(err).Warn("shutdown")
	}
}
