// enroll adds a customer embedding to the gallery from a face image.
// Operators run it once per enrollment photo:
//
//	enroll -image face.jpg -customer cust-1042 -vip gold
package main

import (
	"context"
	"flag"
	"image"
	"log"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/trinetra-retail/trinetra/internal/config"
	"github.com/trinetra-retail/trinetra/internal/gallery"
	"github.com/trinetra-retail/trinetra/internal/inference"
)

func main() {
	imagePath := flag.String("image", "", "path to a cropped face JPEG")
	customerID := flag.String("customer", "", "customer id to enroll")
	vipTier := flag.String("vip", "", "optional VIP tier (e.g. gold)")
	flag.Parse()

	if *imagePath == "" || *customerID == "" {
		flag.Usage()
		os.Exit(2)
	}

	cfg := config.ResolverFromEnv()
	modelPath := config.Getenv("ARCFACE_MODEL_PATH", "/models/arcface_r50.onnx")
	runtimeLib := config.Getenv("ONNXRUNTIME_LIB", "/usr/lib/libonnxruntime.so")

	if err := inference.InitRuntime(runtimeLib); err != nil {
		log.Fatalf("[Enroll] ONNX runtime: %v", err)
	}
	embedder, err := inference.NewFaceEmbedder(modelPath)
	if err != nil {
		log.Fatalf("[Enroll] Embedder: %v", err)
	}
	defer embedder.Close()

	data, err := os.ReadFile(*imagePath)
	if err != nil {
		log.Fatalf("[Enroll] Read image: %v", err)
	}
	img, err := inference.DecodeJPEG(data)
	if err != nil {
		log.Fatalf("[Enroll] Decode image: %v", err)
	}

	embedding := embedder.EmbedBatch([]image.Image{img})[0]
	if isZero(embedding) {
		log.Fatalf("[Enroll] Embedding failed for %s", *imagePath)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	g, err := gallery.New(cfg.QdrantURL, cfg.QdrantAPIKey, cfg.QdrantCollection)
	if err != nil {
		log.Fatalf("[Enroll] Gallery: %v", err)
	}
	defer g.Close()
	if err := g.EnsureCollection(ctx); err != nil {
		log.Fatalf("[Enroll] Gallery collection: %v", err)
	}

	pointID := uuid.NewString()
	if err := g.Enroll(ctx, pointID, *customerID, *vipTier, embedding); err != nil {
		log.Fatalf("[Enroll] Upsert: %v", err)
	}
	log.Printf("[Enroll] Enrolled %s as point %s", *customerID, pointID)
}

func isZero(v []float32) bool {
	for _, x := range v {
		if x != 0 {
			return false
		}
	}
	return true
}
