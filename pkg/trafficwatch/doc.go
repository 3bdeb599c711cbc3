// Package trafficwatch classifies intersection clips for traffic violations.
//
// Quick start:
//
//	d, err := trafficwatch.New(trafficwatch.WithModelPath("models/violations.onnx"))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer d.Close()
//
//	det, _ := d.ClassifyFile(ctx, "incident_1700000000.mp4")
//	fmt.Println(det.Type, det.Confidence) // Red Light Violation 0.92
//
// Without a model path the Detector uses the simulated classifier, which
// picks Red Light, Stop Sign or No Violation at random.
//
// The Detector is safe for concurrent use. Create once, reuse across clips.
package trafficwatch
