package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"modelserve/config"
	"modelserve/ml"
)

func main() {
	modelPath := flag.String("model_path", envOr(config.EnvModelPath, config.DefaultModelPath), "model artifact path")
	sample := flag.String("sample", "", "optional comma separated feature vector to predict")
	flag.Parse()

	predictor, err := ml.LoadModel(*modelPath)
	if err != nil {
		log.Fatalf("invalid model artifact %s: %v", *modelPath, err)
	}

	width := 0
	if counter, ok := predictor.(ml.FeatureCounter); ok {
		width = counter.FeatureCount()
	}
	fmt.Printf("artifact=%s family=%s feature_count=%d\n", *modelPath, predictor.Family(), width)

	if *sample == "" {
		return
	}
	features, err := parseSample(*sample)
	if err != nil {
		log.Fatalf("invalid sample: %v", err)
	}
	prediction, err := predictor.Predict([][]float64{features})
	if err != nil {
		log.Fatalf("prediction failed: %v", err)
	}
	fmt.Printf("prediction=%v\n", prediction)
}

func parseSample(raw string) ([]float64, error) {
	parts := strings.Split(raw, ",")
	features := make([]float64, 0, len(parts))
	for i, part := range parts {
		value, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return nil, fmt.Errorf("feature %d: %w", i, err)
		}
		features = append(features, value)
	}
	return features, nil
}

func envOr(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}
