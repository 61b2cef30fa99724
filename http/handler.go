package http

import (
	"io"
	"net/http"
	"strconv"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/donmai-me/cnquadtree/featureflag"
	"github.com/donmai-me/cnquadtree/models"
	"github.com/donmai-me/cnquadtree/quadtree"
	"github.com/segmentio/encoding/json"
)

// ErrTypeBadRequest marks request decoding and validation failures.
const ErrTypeBadRequest = "http_bad_request"

// API serves a tree store over REST plus a websocket event stream.
type API struct {
	Trees *models.TreeStore
}

// Register wires the API routes into the given mux. Feature flags can
// switch off the routes they name.
func (a *API) Register(mux *http.ServeMux, flags featureflag.FeatureFlag) {
	mux.HandleFunc("POST /trees", a.HandleCreateTree)
	mux.HandleFunc("GET /trees", a.HandleListTrees)
	mux.HandleFunc("GET /trees/{tree}", a.HandleGetTree)
	mux.HandleFunc("DELETE /trees/{tree}", a.HandleDeleteTree)
	mux.HandleFunc("GET /trees/{tree}/depths", a.HandleDepthPopulation)
	mux.HandleFunc("GET /trees/{tree}/locate", a.HandlePointLocate)
	mux.HandleFunc("GET /trees/{tree}/nodes/{node}", a.HandleGetNode)
	mux.HandleFunc("POST /trees/{tree}/nodes/{node}/subdivide", a.HandleSubdivide)
	mux.HandleFunc("POST /trees/{tree}/nodes/{node}/pop", a.HandlePopChildren)
	mux.HandleFunc("GET /trees/{tree}/nodes/{node}/neighbors", a.HandleNeighbors)
	mux.HandleFunc("GET /trees/{tree}/nodes/{node}/location", a.HandleSiblingLocation)

	flags.IfNotSet(featureflag.FlagDisableRegionLocate, func() {
		mux.HandleFunc("GET /trees/{tree}/region", a.HandleRegionLocate)
	})
	flags.IfNotSet(featureflag.FlagDisableTreeWatch, func() {
		mux.Handle("GET /trees/{tree}/watch", a.HandleWatch())
	})
}

type createTreeRequest struct {
	Bounds models.Rect    `json:"bounds"`
	Item   models.Payload `json:"item"`
}

func (a *API) HandleCreateTree(w http.ResponseWriter, r *http.Request) {
	var req createTreeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.New("decoding request body failed").
			WithType(ErrTypeBadRequest).
			Wrap(err))
		return
	}
	if !req.Bounds.Valid() {
		writeError(w, errors.New("tree bounds must have a positive area").
			WithType(ErrTypeBadRequest).
			WithTag("bounds", req.Bounds))
		return
	}

	handle := a.Trees.New(req.Bounds.Bounds(), req.Item)
	logs.WithTag("tree_id", handle.ID).Info("tree created")

	writeJSON(w, http.StatusCreated, handle.Info())
}

func (a *API) HandleListTrees(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.Trees.List())
}

func (a *API) HandleGetTree(w http.ResponseWriter, r *http.Request) {
	handle, err := a.treeHandle(r)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, handle.Info())
}

func (a *API) HandleDeleteTree(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("tree")
	if !a.Trees.Remove(id) {
		writeError(w, treeNotFound(id))
		return
	}

	logs.WithTag("tree_id", id).Info("tree removed")
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) HandleGetNode(w http.ResponseWriter, r *http.Request) {
	handle, index, err := a.treeNode(r)
	if err != nil {
		writeError(w, err)
		return
	}

	view, err := handle.NodeView(index)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

type subdivideRequest struct {
	Items [4]models.Payload `json:"items"`
}

type subdivideResponse struct {
	Children []quadtree.Index `json:"children"`
}

func (a *API) HandleSubdivide(w http.ResponseWriter, r *http.Request) {
	handle, index, err := a.treeNode(r)
	if err != nil {
		writeError(w, err)
		return
	}

	// The body is optional: subdividing without payloads leaves the
	// children empty.
	var req subdivideRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && err != io.EOF {
		writeError(w, errors.New("decoding request body failed").
			WithType(ErrTypeBadRequest).
			Wrap(err))
		return
	}

	children, err := handle.Subdivide(index, req.Items)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, subdivideResponse{Children: children[:]})
}

type popChildrenResponse struct {
	Items [4]models.Payload `json:"items"`
}

func (a *API) HandlePopChildren(w http.ResponseWriter, r *http.Request) {
	handle, index, err := a.treeNode(r)
	if err != nil {
		writeError(w, err)
		return
	}

	items, err := handle.PopChildren(index)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, popChildrenResponse{Items: items})
}

type neighborsResponse struct {
	Neighbors []quadtree.Index `json:"neighbors"`
}

func (a *API) HandleNeighbors(w http.ResponseWriter, r *http.Request) {
	handle, index, err := a.treeNode(r)
	if err != nil {
		writeError(w, err)
		return
	}

	direction, ok := quadtree.ParseCardinality(r.URL.Query().Get("direction"))
	if !ok {
		writeError(w, errors.New("direction must be west, north, east or south").
			WithType(ErrTypeBadRequest).
			WithTag("direction", r.URL.Query().Get("direction")))
		return
	}

	neighbors, err := handle.Neighbors(index, direction)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, neighborsResponse{Neighbors: neighbors})
}

type siblingLocationResponse struct {
	Location string `json:"location"`
}

func (a *API) HandleSiblingLocation(w http.ResponseWriter, r *http.Request) {
	handle, index, err := a.treeNode(r)
	if err != nil {
		writeError(w, err)
		return
	}

	location, err := handle.SiblingLocation(index)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, siblingLocationResponse{Location: location.String()})
}

func (a *API) HandlePointLocate(w http.ResponseWriter, r *http.Request) {
	handle, err := a.treeHandle(r)
	if err != nil {
		writeError(w, err)
		return
	}

	x, err := queryFloat(r, "x")
	if err != nil {
		writeError(w, err)
		return
	}
	y, err := queryFloat(r, "y")
	if err != nil {
		writeError(w, err)
		return
	}

	index, err := handle.PointLocate(x, y)
	if err != nil {
		writeError(w, err)
		return
	}

	view, err := handle.NodeView(index)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

type regionLocateResponse struct {
	Leaves []quadtree.Index `json:"leaves"`
}

func (a *API) HandleRegionLocate(w http.ResponseWriter, r *http.Request) {
	handle, err := a.treeHandle(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var region models.Rect
	for _, p := range []struct {
		name  string
		value *float64
	}{
		{"min_x", &region.MinX},
		{"min_y", &region.MinY},
		{"max_x", &region.MaxX},
		{"max_y", &region.MaxY},
	} {
		v, err := queryFloat(r, p.name)
		if err != nil {
			writeError(w, err)
			return
		}
		*p.value = v
	}
	if !region.Valid() {
		writeError(w, errors.New("region must have a positive area").
			WithType(ErrTypeBadRequest).
			WithTag("region", region))
		return
	}

	leaves, err := handle.RegionLocate(region.Bounds())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, regionLocateResponse{Leaves: leaves})
}

type depthPopulationResponse struct {
	Depths []int `json:"depths"`
}

func (a *API) HandleDepthPopulation(w http.ResponseWriter, r *http.Request) {
	handle, err := a.treeHandle(r)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, depthPopulationResponse{Depths: handle.DepthPopulation()})
}

func (a *API) treeHandle(r *http.Request) (*models.TreeHandle, error) {
	id := r.PathValue("tree")
	handle, ok := a.Trees.Get(id)
	if !ok {
		return nil, treeNotFound(id)
	}
	return handle, nil
}

func (a *API) treeNode(r *http.Request) (*models.TreeHandle, quadtree.Index, error) {
	handle, err := a.treeHandle(r)
	if err != nil {
		return nil, quadtree.NoIndex, err
	}

	index, err := quadtree.ParseIndex(r.PathValue("node"))
	if err != nil {
		return nil, quadtree.NoIndex, errors.New("invalid node index").
			WithType(ErrTypeBadRequest).
			Wrap(err)
	}
	return handle, index, nil
}

func treeNotFound(id string) error {
	return errors.New("tree not found").
		WithType(models.ErrTypeTreeNotFound).
		WithTag("tree_id", id)
}

func queryFloat(r *http.Request, name string) (float64, error) {
	value, err := strconv.ParseFloat(r.URL.Query().Get(name), 64)
	if err != nil {
		return 0, errors.New("invalid query parameter").
			WithType(ErrTypeBadRequest).
			WithTag("name", name).
			Wrap(err)
	}
	return value, nil
}

type errorResponse struct {
	Error string `json:"error"`
	Type  string `json:"type,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		logs.Error(errors.New("encoding response failed").Wrap(err))
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(body)
}

func writeError(w http.ResponseWriter, err error) {
	var status int

	switch errors.Type(err) {
	case models.ErrTypeTreeNotFound,
		models.ErrTypeNodeNotFound,
		models.ErrTypeOutOfBounds,
		quadtree.ErrTypeInvalidIndex:
		status = http.StatusNotFound

	case quadtree.ErrTypeAlreadySubdivided,
		models.ErrTypeNotPoppable,
		models.ErrTypeNoSiblings:
		status = http.StatusConflict

	case ErrTypeBadRequest:
		status = http.StatusBadRequest

	default:
		status = http.StatusInternalServerError
		logs.Error(err)
	}

	writeJSON(w, status, errorResponse{
		Error: err.Error(),
		Type:  errors.Type(err),
	})
}
